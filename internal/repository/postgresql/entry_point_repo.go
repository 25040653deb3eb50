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

type pgEntryPointRepository struct {
	db *sql.DB
}

func NewPgEntryPointRepository(db *sql.DB) repository.EntryPointRepository {
	return &pgEntryPointRepository{db: db}
}

// Create inserts the entry point and bumps the complex counter in one transaction.
func (r *pgEntryPointRepository) Create(ctx context.Context, ep *domain.EntryPoint) (*domain.EntryPoint, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create (begin): %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query, args, err := psql.
		Insert("entry_points").
		Columns("id", "name", "parking_complex_id").
		Values(ep.ID, ep.Name, ep.ParkingComplexID).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create (build): %w", err)
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&ep.CreatedAt, &ep.UpdatedAt); err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create: %w", err)
	}

	query, args, err = psql.
		Update("parking_complexes").
		Set("no_of_entry_points", squirrel.Expr("no_of_entry_points + 1")).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": ep.ParkingComplexID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create (build counter): %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create (counter): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("EntryPointRepository.Create (commit): %w", err)
	}
	ep.CreatedAt = ep.CreatedAt.In(time.UTC)
	ep.UpdatedAt = ep.UpdatedAt.In(time.UTC)
	return ep, nil
}

func (r *pgEntryPointRepository) FindByID(ctx context.Context, id string) (*domain.EntryPoint, error) {
	query, args, err := psql.
		Select("id", "name", "parking_complex_id", "created_at", "updated_at").
		From("entry_points").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.FindByID (build): %w", err)
	}
	ep, err := scanEntryPoint(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("EntryPointRepository.FindByID: %w", err)
	}
	return ep, nil
}

func (r *pgEntryPointRepository) ListByComplexID(ctx context.Context, complexID string) ([]domain.EntryPoint, error) {
	query, args, err := psql.
		Select("id", "name", "parking_complex_id", "created_at", "updated_at").
		From("entry_points").
		Where(squirrel.Eq{"parking_complex_id": complexID}).
		OrderBy("created_at ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.ListByComplexID (build): %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("EntryPointRepository.ListByComplexID: %w", err)
	}
	defer rows.Close()

	entryPoints := make([]domain.EntryPoint, 0)
	for rows.Next() {
		ep, err := scanEntryPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("EntryPointRepository.ListByComplexID (scan): %w", err)
		}
		entryPoints = append(entryPoints, *ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("EntryPointRepository.ListByComplexID (rows): %w", err)
	}
	return entryPoints, nil
}

func scanEntryPoint(row rowScanner) (*domain.EntryPoint, error) {
	ep := &domain.EntryPoint{}
	if err := row.Scan(&ep.ID, &ep.Name, &ep.ParkingComplexID, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
		return nil, err
	}
	ep.CreatedAt = ep.CreatedAt.In(time.UTC)
	ep.UpdatedAt = ep.UpdatedAt.In(time.UTC)
	return ep, nil
}
