package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parking_complexes (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		no_of_slots INTEGER NOT NULL DEFAULT 0,
		no_of_entry_points INTEGER NOT NULL DEFAULT 0,
		flat_rate NUMERIC NOT NULL,
		flat_rate_hours NUMERIC NOT NULL,
		day_rate NUMERIC NOT NULL,
		continuous_hour_threshold NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS entry_points (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		parking_complex_id UUID NOT NULL REFERENCES parking_complexes(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS entry_points_complex_idx ON entry_points (parking_complex_id)`,
	`CREATE TABLE IF NOT EXISTS parking_slots (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		parking_complex_id UUID NOT NULL REFERENCES parking_complexes(id),
		type SMALLINT NOT NULL,
		rate_per_hour NUMERIC NOT NULL,
		is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
		distances JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS parking_slots_available_idx ON parking_slots (parking_complex_id, is_occupied, type)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id UUID PRIMARY KEY,
		plate_number TEXT NOT NULL,
		vehicle_type SMALLINT NOT NULL,
		parking_slot_id UUID NOT NULL REFERENCES parking_slots(id),
		parking_slot_type SMALLINT NOT NULL,
		parking_slot_rate NUMERIC NOT NULL,
		entry_point_id UUID NOT NULL,
		parking_complex_id UUID NOT NULL REFERENCES parking_complexes(id),
		park_time TIMESTAMPTZ NOT NULL,
		unpark_time TIMESTAMPTZ,
		initial_park_time TIMESTAMPTZ,
		is_continuous BOOLEAN NOT NULL DEFAULT FALSE,
		is_flat_rate_consumed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_plate_idx ON parking_sessions (plate_number, park_time DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgresql: migrate: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgresql: migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgresql: migrate: commit: %w", err)
	}
	return nil
}
