package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

var slotColumns = []string{
	"id", "name", "parking_complex_id", "type", "rate_per_hour", "is_occupied", "distances", "created_at", "updated_at",
}

type pgParkingSlotRepository struct {
	db *sql.DB
}

func NewPgParkingSlotRepository(db *sql.DB) repository.ParkingSlotRepository {
	return &pgParkingSlotRepository{db: db}
}

func (r *pgParkingSlotRepository) Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	distances, err := json.Marshal(slot.Distances)
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.Create (distances): %w", err)
	}
	if slot.Distances == nil {
		distances = []byte("{}")
	}

	query, args, err := psql.
		Insert("parking_slots").
		Columns("id", "name", "parking_complex_id", "type", "rate_per_hour", "is_occupied", "distances").
		Values(slot.ID, slot.Name, slot.ParkingComplexID, int(slot.Type), slot.RatePerHour, slot.IsOccupied, string(distances)).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.Create (build): %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.Create: %w", err)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgParkingSlotRepository) FindByID(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	query, args, err := psql.Select(slotColumns...).From("parking_slots").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.FindByID (build): %w", err)
	}
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

// FindNearestAvailable orders by the JSONB distance of the entry point. Slots
// without an entry for it sort last.
func (r *pgParkingSlotRepository) FindNearestAvailable(ctx context.Context, complexID, entryPointID string, minType domain.SizeClass) (*domain.ParkingSlot, error) {
	query, args, err := psql.
		Select(slotColumns...).
		From("parking_slots").
		Where(squirrel.Eq{"parking_complex_id": complexID, "is_occupied": false}).
		Where(squirrel.GtOrEq{"type": int(minType)}).
		OrderByClause("(distances->>?)::numeric ASC NULLS LAST", entryPointID).
		OrderBy("type ASC", "name ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.FindNearestAvailable (build): %w", err)
	}
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindNearestAvailable: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) MarkOccupied(ctx context.Context, id string) error {
	query, args, err := psql.
		Update("parking_slots").
		Set("is_occupied", true).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id, "is_occupied": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.MarkOccupied (build): %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.MarkOccupied: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.MarkOccupied (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrSlotUnavailable
	}
	return nil
}

func (r *pgParkingSlotRepository) Release(ctx context.Context, id string) error {
	query, args, err := psql.
		Update("parking_slots").
		Set("is_occupied", false).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Release (build): %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Release: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Release (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSlotRepository) CountOccupied(ctx context.Context, complexID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("parking_slots").
		Where(squirrel.Eq{"parking_complex_id": complexID, "is_occupied": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ParkingSlotRepository.CountOccupied (build): %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("ParkingSlotRepository.CountOccupied: %w", err)
	}
	return n, nil
}

func scanSlot(row rowScanner) (*domain.ParkingSlot, error) {
	slot := &domain.ParkingSlot{}
	var (
		slotType  int
		distances []byte
	)
	err := row.Scan(&slot.ID, &slot.Name, &slot.ParkingComplexID, &slotType, &slot.RatePerHour,
		&slot.IsOccupied, &distances, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	slot.Type = domain.SizeClass(slotType)
	if len(distances) > 0 {
		if err := json.Unmarshal(distances, &slot.Distances); err != nil {
			return nil, fmt.Errorf("decode distances: %w", err)
		}
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}
