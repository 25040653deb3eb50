package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/vinieshwan/parking-system/internal/config"
	"github.com/vinieshwan/parking-system/internal/repository"
)

const uniqueViolation = "23505"

// NewDB opens a pool with the configured driver: "pgx" (pgx/stdlib) or
// "postgres" (lib/pq).
func NewDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DBDriver, cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("postgresql: open %s: %w", cfg.DBDriver, err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgresql: ping: %w", err)
	}
	return db, nil
}

// NewStore wires every repository onto one pool.
func NewStore(db *sql.DB) repository.Store {
	return repository.Store{
		Complexes:   NewPgParkingComplexRepository(db),
		EntryPoints: NewPgEntryPointRepository(db),
		Slots:       NewPgParkingSlotRepository(db),
		Sessions:    NewPgParkingSessionRepository(db),
		Users:       NewPgUserRepository(db),
	}
}

// isUniqueViolation understands errors from both registered drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
