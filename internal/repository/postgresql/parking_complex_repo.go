package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var complexColumns = []string{
	"id", "name", "no_of_slots", "no_of_entry_points", "flat_rate", "flat_rate_hours",
	"day_rate", "continuous_hour_threshold", "created_at", "updated_at",
}

type pgParkingComplexRepository struct {
	db *sql.DB
}

func NewPgParkingComplexRepository(db *sql.DB) repository.ParkingComplexRepository {
	return &pgParkingComplexRepository{db: db}
}

func (r *pgParkingComplexRepository) Create(ctx context.Context, c *domain.ParkingComplex) (*domain.ParkingComplex, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("parking_complexes").
		Columns("id", "name", "no_of_slots", "no_of_entry_points", "flat_rate", "flat_rate_hours", "day_rate", "continuous_hour_threshold").
		Values(c.ID, c.Name, c.NoOfSlots, c.NoOfEntryPoints, c.FlatRate.Rate, c.FlatRate.Hours, c.DayRate, c.ContinuousHourThreshold).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingComplexRepository.Create (build): %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: parking complex %q", repository.ErrDuplicateEntry, c.Name)
		}
		return nil, fmt.Errorf("ParkingComplexRepository.Create: %w", err)
	}
	c.CreatedAt = c.CreatedAt.In(time.UTC)
	c.UpdatedAt = c.UpdatedAt.In(time.UTC)
	return c, nil
}

func (r *pgParkingComplexRepository) FindByID(ctx context.Context, id string) (*domain.ParkingComplex, error) {
	return r.findOne(ctx, "ParkingComplexRepository.FindByID", squirrel.Eq{"id": id})
}

func (r *pgParkingComplexRepository) FindByName(ctx context.Context, name string) (*domain.ParkingComplex, error) {
	return r.findOne(ctx, "ParkingComplexRepository.FindByName", squirrel.Eq{"name": name})
}

func (r *pgParkingComplexRepository) FindAll(ctx context.Context) ([]domain.ParkingComplex, error) {
	query, args, err := psql.Select(complexColumns...).From("parking_complexes").OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ParkingComplexRepository.FindAll (build): %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingComplexRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var complexes []domain.ParkingComplex
	for rows.Next() {
		c, err := scanComplex(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingComplexRepository.FindAll (scan): %w", err)
		}
		complexes = append(complexes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingComplexRepository.FindAll (rows): %w", err)
	}
	return complexes, nil
}

func (r *pgParkingComplexRepository) findOne(ctx context.Context, op string, where squirrel.Eq) (*domain.ParkingComplex, error) {
	query, args, err := psql.Select(complexColumns...).From("parking_complexes").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s (build): %w", op, err)
	}
	c, err := scanComplex(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplex(row rowScanner) (*domain.ParkingComplex, error) {
	c := &domain.ParkingComplex{}
	err := row.Scan(&c.ID, &c.Name, &c.NoOfSlots, &c.NoOfEntryPoints, &c.FlatRate.Rate, &c.FlatRate.Hours,
		&c.DayRate, &c.ContinuousHourThreshold, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.In(time.UTC)
	c.UpdatedAt = c.UpdatedAt.In(time.UTC)
	return c, nil
}
