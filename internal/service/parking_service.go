package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/billing"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/lock"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/metrics"
	"github.com/vinieshwan/parking-system/internal/repository"
)

const defaultHistoryLimit = 50

// ParkingService runs the park and unpark flows on top of the stores. Calls
// for one plate number are serialized through the locker.
type ParkingService struct {
	store    repository.Store
	locker   lock.Locker
	notifier Notifier
	metrics  *metrics.ParkingMetrics
	log      logger.Logger
	now      func() time.Time
}

func NewParkingService(
	store repository.Store,
	locker lock.Locker,
	notifier Notifier,
	m *metrics.ParkingMetrics,
	log logger.Logger,
) *ParkingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ParkingService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		metrics:  m,
		log:      log.Named("parking"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// --- Parking complex ---

func (s *ParkingService) GetComplexByName(ctx context.Context, name string) (*domain.ParkingComplex, error) {
	c, err := s.store.Complexes.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking complex not found")
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *ParkingService) ListComplexes(ctx context.Context) ([]domain.ParkingComplex, error) {
	complexes, err := s.store.Complexes.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return complexes, nil
}

func (s *ParkingService) getComplex(ctx context.Context, id string) (*domain.ParkingComplex, error) {
	c, err := s.store.Complexes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking complex not found")
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

// --- Entry points ---

func (s *ParkingService) ListEntryPoints(ctx context.Context, complexID string) ([]domain.EntryPoint, error) {
	if _, err := s.getComplex(ctx, complexID); err != nil {
		return nil, err
	}
	eps, err := s.store.EntryPoints.ListByComplexID(ctx, complexID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return eps, nil
}

func (s *ParkingService) AddEntryPoint(ctx context.Context, dto domain.AddEntryPointDTO) (*domain.EntryPoint, error) {
	name := strings.TrimSpace(dto.EntryPointName)
	if len(name) < 2 {
		return nil, apperr.InvalidArgument("entry point name must have at least 2 characters")
	}
	if _, err := s.getComplex(ctx, dto.ParkingComplexID); err != nil {
		return nil, err
	}
	ep, err := s.store.EntryPoints.Create(ctx, &domain.EntryPoint{Name: name, ParkingComplexID: dto.ParkingComplexID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("entry point added", "entryPointId", ep.ID, "complexId", ep.ParkingComplexID)
	return ep, nil
}

// --- Slots ---

// FindSlot returns the nearest free slot that fits vehicleType, or nil when
// every qualifying slot is taken.
func (s *ParkingService) FindSlot(ctx context.Context, complexID, entryPointID string, vehicleType domain.SizeClass) (*domain.ParkingSlot, error) {
	if !vehicleType.Valid() {
		return nil, apperr.InvalidArgument("invalid vehicle type")
	}
	slot, err := s.store.Slots.FindNearestAvailable(ctx, complexID, entryPointID, vehicleType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return slot, nil
}

// --- Park / unpark ---

// Park opens a session for the vehicle on slotID. The slot is claimed with a
// conditional update before the session is written, and released again if
// that write fails.
func (s *ParkingService) Park(ctx context.Context, slotID, entryPointID string, v domain.VehicleDetails) (_ *domain.ParkingSession, err error) {
	defer func() { s.metrics.RecordPark(err == nil) }()

	plate := normalizePlate(v.PlateNumber)
	if plate == "" {
		return nil, apperr.InvalidArgument("plate number is required")
	}
	if !v.Type.Valid() {
		return nil, apperr.InvalidArgument("invalid vehicle type")
	}

	unlock, err := s.lockPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	slot, err := s.store.Slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("parking slot not found")
		}
		return nil, apperr.Internal(err)
	}
	if !v.Type.Fits(slot.Type) {
		return nil, apperr.InvalidArgument("vehicle does not fit the parking slot")
	}

	pc, err := s.getComplex(ctx, slot.ParkingComplexID)
	if err != nil {
		return nil, err
	}

	ep, err := s.store.EntryPoints.FindByID(ctx, entryPointID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("entry point not found")
		}
		return nil, apperr.Internal(err)
	}
	if ep.ParkingComplexID != pc.ID {
		return nil, apperr.InvalidArgument("entry point does not belong to the parking complex")
	}

	latest, err := s.store.Sessions.FindLatestByPlate(ctx, plate)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		latest = nil
	case err != nil:
		return nil, apperr.Internal(err)
	case latest.IsOpen():
		return nil, apperr.Conflict("vehicle is already parked")
	}

	parkTime := s.now()
	if v.ParkTime.Valid {
		parkTime = v.ParkTime.Time.UTC()
	}
	// Sessions are ordered by park time, so a new one must not start before
	// the previous unpark or it would never be the latest.
	if latest != nil && parkTime.Before(latest.UnparkTime.Time) {
		return nil, apperr.InvalidArgument("park time is before the previous unpark")
	}
	draft := billing.PrepareSession(domain.ParkingSession{
		PlateNumber:      plate,
		VehicleType:      v.Type,
		ParkingSlotID:    slot.ID,
		ParkingSlotType:  slot.Type,
		ParkingSlotRate:  slot.RatePerHour,
		EntryPointID:     entryPointID,
		ParkingComplexID: pc.ID,
		ParkTime:         parkTime,
	}, pc.RatePolicy(), billing.PreviousFrom(latest))

	if err := s.store.Slots.MarkOccupied(ctx, slot.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotUnavailable):
			return nil, apperr.Conflict("parking slot is no longer available")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("parking slot not found")
		}
		return nil, apperr.Internal(err)
	}

	created, err := s.store.Sessions.Create(ctx, &draft)
	if err != nil {
		if relErr := s.store.Slots.Release(context.WithoutCancel(ctx), slot.ID); relErr != nil {
			s.log.Error("failed to release slot after session write failed",
				"slotId", slot.ID, "plateNumber", plate, "error", relErr)
		}
		return nil, apperr.Internal(err)
	}

	s.log.Info("vehicle parked",
		"plateNumber", plate,
		"slotId", slot.ID,
		"complexId", pc.ID,
		"isContinuous", created.IsContinuous,
	)
	s.notifier.Notify(ctx, domain.ParkingEvent{
		EventID:          uuid.NewString(),
		Type:             domain.EventParked,
		PlateNumber:      plate,
		ParkingSlotID:    slot.ID,
		ParkingComplexID: pc.ID,
		At:               created.ParkTime,
	})
	return created, nil
}

// Unpark closes the latest session of the plate and returns the amount payable.
func (s *ParkingService) Unpark(ctx context.Context, d domain.UnparkDetails) (payable float64, err error) {
	defer func() { s.metrics.RecordUnpark(err == nil, payable) }()

	plate := normalizePlate(d.PlateNumber)
	if plate == "" {
		return 0, apperr.InvalidArgument("plate number is required")
	}

	unlock, err := s.lockPlate(ctx, plate)
	if err != nil {
		return 0, err
	}
	defer unlock()

	session, err := s.store.Sessions.FindLatestByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.NotFound("no parking history for plate number")
		}
		return 0, apperr.Internal(err)
	}
	if !session.IsOpen() {
		return 0, apperr.Conflict("vehicle is not parked")
	}

	pc, err := s.getComplex(ctx, session.ParkingComplexID)
	if err != nil {
		return 0, err
	}

	unparkTime := s.now()
	if d.UnparkTime.Valid {
		unparkTime = d.UnparkTime.Time.UTC()
	}
	if unparkTime.Before(session.ParkTime) {
		return 0, apperr.InvalidArgument("unpark time is before park time")
	}
	session.UnparkTime = null.TimeFrom(unparkTime)

	fee, err := billing.CalculateFee(*session, pc.RatePolicy())
	if err != nil {
		return 0, apperr.Internal(err)
	}

	update := domain.SessionUpdate{UnparkTime: unparkTime, IsFlatRateConsumed: fee.IsFlatRateConsumed}
	if err := s.store.Sessions.Close(ctx, session.ID, update); err != nil {
		if errors.Is(err, repository.ErrNoActiveSession) {
			return 0, apperr.Conflict("vehicle is not parked")
		}
		return 0, apperr.Internal(err)
	}

	// The session is already closed; a slot left occupied is only logged.
	if err := s.store.Slots.Release(context.WithoutCancel(ctx), session.ParkingSlotID); err != nil {
		s.log.Error("failed to release slot after unpark",
			"slotId", session.ParkingSlotID, "plateNumber", plate, "payable", fee.Payable, "error", err)
	}

	s.log.Info("vehicle unparked",
		"plateNumber", plate,
		"slotId", session.ParkingSlotID,
		"payable", fee.Payable,
		"isFlatRateConsumed", fee.IsFlatRateConsumed,
	)
	payable = fee.Payable
	s.notifier.Notify(ctx, domain.ParkingEvent{
		EventID:          uuid.NewString(),
		Type:             domain.EventUnparked,
		PlateNumber:      plate,
		ParkingSlotID:    session.ParkingSlotID,
		ParkingComplexID: session.ParkingComplexID,
		Payable:          &payable,
		At:               unparkTime,
	})
	return payable, nil
}

// History lists the sessions of a plate, newest first.
func (s *ParkingService) History(ctx context.Context, plateNumber string, limit int) ([]domain.ParkingSession, error) {
	plate := normalizePlate(plateNumber)
	if plate == "" {
		return nil, apperr.InvalidArgument("plate number is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	sessions, err := s.store.Sessions.ListByPlate(ctx, plate, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return sessions, nil
}

// RefreshOccupancy updates the occupied-slot gauge of every complex.
func (s *ParkingService) RefreshOccupancy(ctx context.Context) error {
	complexes, err := s.store.Complexes.FindAll(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	for _, c := range complexes {
		n, err := s.store.Slots.CountOccupied(ctx, c.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		s.metrics.SetOccupied(c.Name, n)
	}
	return nil
}

func (s *ParkingService) lockPlate(ctx context.Context, plate string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "plate:"+plate)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release plate lock", "plateNumber", plate, "error", err)
		}
	}, nil
}

func normalizePlate(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
