// Package seed loads the default parking complex into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/repository"
)

const (
	ComplexName      = "Ayala Mall Parking Complex"
	entryPointPrefix = "Entry Point"
	slotPrefix       = "Parking Slot"
	slotsPerType     = 4
	baseSlotRate     = 20
	rateStepPerType  = 40
)

// slotDistances[i][j] is the distance of the i-th slot to the j-th entry point.
var slotDistances = [][]float64{
	{1, 6, 9},
	{2, 5, 8},
	{3, 4, 7},
	{4, 3, 6},
	{5, 2, 5},
	{6, 1, 4},
	{7, 2, 3},
	{8, 3, 2},
	{9, 4, 1},
	{3, 7, 2},
	{2, 8, 3},
	{1, 9, 4},
}

func defaultComplex() *domain.ParkingComplex {
	return &domain.ParkingComplex{
		Name:                    ComplexName,
		NoOfSlots:               len(slotDistances),
		FlatRate:                domain.FlatRate{Rate: 40, Hours: 3},
		DayRate:                 5000,
		ContinuousHourThreshold: 1,
	}
}

// Run creates the default complex with three entry points and four slots of
// each size. It is a no-op when the complex already exists.
func Run(ctx context.Context, store repository.Store, log logger.Logger) (*domain.ParkingComplex, error) {
	existing, err := store.Complexes.FindByName(ctx, ComplexName)
	if err == nil {
		log.Info("seed skipped, parking complex exists", "complexId", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("seed: look up complex: %w", err)
	}

	pc, err := store.Complexes.Create(ctx, defaultComplex())
	if err != nil {
		return nil, fmt.Errorf("seed: create complex: %w", err)
	}

	entryPoints := make([]*domain.EntryPoint, 0, 3)
	for i := 0; i < len(slotDistances[0]); i++ {
		ep, err := store.EntryPoints.Create(ctx, &domain.EntryPoint{
			Name:             fmt.Sprintf("%s %d", entryPointPrefix, i+1),
			ParkingComplexID: pc.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: create entry point: %w", err)
		}
		entryPoints = append(entryPoints, ep)
	}

	n := 0
	for _, size := range []domain.SizeClass{domain.SizeSmall, domain.SizeMedium, domain.SizeLarge} {
		for j := 0; j < slotsPerType; j++ {
			distances := make(map[string]float64, len(entryPoints))
			for k, ep := range entryPoints {
				distances[ep.ID] = slotDistances[n][k]
			}
			_, err := store.Slots.Create(ctx, &domain.ParkingSlot{
				Name:             fmt.Sprintf("%s %d", slotPrefix, n),
				ParkingComplexID: pc.ID,
				Type:             size,
				RatePerHour:      float64(baseSlotRate + rateStepPerType*int(size)),
				Distances:        distances,
			})
			if err != nil {
				return nil, fmt.Errorf("seed: create slot: %w", err)
			}
			n++
		}
	}

	log.Info("seeded parking complex",
		"complexId", pc.ID,
		"entryPoints", len(entryPoints),
		"slots", n,
	)
	return store.Complexes.FindByID(ctx, pc.ID)
}
