package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(sql.ErrNoRows))
}

func TestNearestSlotQuery(t *testing.T) {
	query, args, err := psql.
		Select("id").
		From("parking_slots").
		Where("is_occupied = ?", false).
		OrderByClause("(distances->>?)::numeric ASC NULLS LAST", "ep1").
		ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "(distances->>$2)::numeric ASC NULLS LAST")
	assert.Equal(t, []any{false, "ep1"}, args)
}

// openTestDB connects to PARKING_TEST_POSTGRES_DSN and skips when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PARKING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PARKING_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE parking_sessions, parking_slots, entry_points, parking_complexes, users CASCADE`)
	require.NoError(t, err)
	return db
}

func TestStoreIntegration(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	c, err := store.Complexes.Create(ctx, &domain.ParkingComplex{
		Name:                    "Test Complex",
		FlatRate:                domain.FlatRate{Rate: 40, Hours: 3},
		DayRate:                 5000,
		ContinuousHourThreshold: 1,
	})
	require.NoError(t, err)

	ep, err := store.EntryPoints.Create(ctx, &domain.EntryPoint{Name: "A", ParkingComplexID: c.ID})
	require.NoError(t, err)

	near, err := store.Slots.Create(ctx, &domain.ParkingSlot{
		Name: "M1", ParkingComplexID: c.ID, Type: domain.SizeMedium, RatePerHour: 60,
		Distances: map[string]float64{ep.ID: 1},
	})
	require.NoError(t, err)
	_, err = store.Slots.Create(ctx, &domain.ParkingSlot{
		Name: "S1", ParkingComplexID: c.ID, Type: domain.SizeSmall, RatePerHour: 20,
		Distances: map[string]float64{ep.ID: 4},
	})
	require.NoError(t, err)

	got, err := store.Slots.FindNearestAvailable(ctx, c.ID, ep.ID, domain.SizeSmall)
	require.NoError(t, err)
	assert.Equal(t, near.ID, got.ID)

	require.NoError(t, store.Slots.MarkOccupied(ctx, near.ID))
	assert.ErrorIs(t, store.Slots.MarkOccupied(ctx, near.ID), repository.ErrSlotUnavailable)

	parkTime := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s, err := store.Sessions.Create(ctx, &domain.ParkingSession{
		PlateNumber: "ABC1234", ParkingSlotID: near.ID, ParkingSlotType: near.Type, ParkingSlotRate: near.RatePerHour,
		EntryPointID: ep.ID, ParkingComplexID: c.ID, ParkTime: parkTime,
	})
	require.NoError(t, err)

	latest, err := store.Sessions.FindLatestByPlate(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, s.ID, latest.ID)
	assert.True(t, latest.IsOpen())

	update := domain.SessionUpdate{UnparkTime: parkTime.Add(2 * time.Hour)}
	require.NoError(t, store.Sessions.Close(ctx, s.ID, update))
	assert.ErrorIs(t, store.Sessions.Close(ctx, s.ID, update), repository.ErrNoActiveSession)
}
