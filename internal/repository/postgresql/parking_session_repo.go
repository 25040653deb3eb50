package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

var sessionColumns = []string{
	"id", "plate_number", "vehicle_type", "parking_slot_id", "parking_slot_type", "parking_slot_rate",
	"entry_point_id", "parking_complex_id", "park_time", "unpark_time", "initial_park_time",
	"is_continuous", "is_flat_rate_consumed", "created_at", "updated_at",
}

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

func (r *pgParkingSessionRepository) Create(ctx context.Context, s *domain.ParkingSession) (*domain.ParkingSession, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("parking_sessions").
		Columns(sessionColumns[:13]...).
		Values(s.ID, strings.ToLower(s.PlateNumber), int(s.VehicleType), s.ParkingSlotID, int(s.ParkingSlotType), s.ParkingSlotRate,
			s.EntryPointID, s.ParkingComplexID, s.ParkTime, s.UnparkTime, s.InitialParkTime,
			s.IsContinuous, s.IsFlatRateConsumed).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create (build): %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgParkingSessionRepository) FindLatestByPlate(ctx context.Context, plateNumber string) (*domain.ParkingSession, error) {
	sessions, err := r.ListByPlate(ctx, plateNumber, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, repository.ErrNotFound
	}
	return &sessions[0], nil
}

func (r *pgParkingSessionRepository) ListByPlate(ctx context.Context, plateNumber string, limit int) ([]domain.ParkingSession, error) {
	builder := psql.
		Select(sessionColumns...).
		From("parking_sessions").
		Where(squirrel.Eq{"plate_number": strings.ToLower(plateNumber)}).
		OrderBy("park_time DESC", "created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.ListByPlate (build): %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.ListByPlate: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.ParkingSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.ListByPlate (scan): %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.ListByPlate (rows): %w", err)
	}
	return sessions, nil
}

// Close only touches a row whose unpark_time is still NULL.
func (r *pgParkingSessionRepository) Close(ctx context.Context, id string, update domain.SessionUpdate) error {
	query, args, err := psql.
		Update("parking_sessions").
		Set("unpark_time", update.UnparkTime).
		Set("is_flat_rate_consumed", update.IsFlatRateConsumed).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id, "unpark_time": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close (build): %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close (checking rows affected): %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM parking_sessions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ParkingSessionRepository.Close (exists): %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrNoActiveSession
}

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	s := &domain.ParkingSession{}
	var vehicleType, slotType int
	err := row.Scan(&s.ID, &s.PlateNumber, &vehicleType, &s.ParkingSlotID, &slotType, &s.ParkingSlotRate,
		&s.EntryPointID, &s.ParkingComplexID, &s.ParkTime, &s.UnparkTime, &s.InitialParkTime,
		&s.IsContinuous, &s.IsFlatRateConsumed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.VehicleType = domain.SizeClass(vehicleType)
	s.ParkingSlotType = domain.SizeClass(slotType)
	s.ParkTime = s.ParkTime.In(time.UTC)
	if s.UnparkTime.Valid {
		s.UnparkTime.Time = s.UnparkTime.Time.In(time.UTC)
	}
	if s.InitialParkTime.Valid {
		s.InitialParkTime.Time = s.InitialParkTime.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}
