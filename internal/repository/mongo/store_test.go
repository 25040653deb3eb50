package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

func TestSessionModelRoundTrip(t *testing.T) {
	park := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := &domain.ParkingSession{
		ID:              "65f1c0ffee0000000000abcd",
		PlateNumber:     "abc1234",
		VehicleType:     domain.SizeMedium,
		ParkTime:        park,
		InitialParkTime: null.TimeFrom(park.Add(-time.Hour)),
	}
	m := toSessionModel(s)
	assert.Nil(t, m.UnparkTime)
	require.NotNil(t, m.InitialParkTime)

	back := fromSessionModel(m)
	assert.True(t, back.IsOpen())
	assert.Equal(t, park.Add(-time.Hour), back.InitialParkTime.Time)
	assert.Equal(t, domain.SizeMedium, back.VehicleType)
}

func TestToSlotModelDefaultsDistances(t *testing.T) {
	m := toSlotModel(&domain.ParkingSlot{Name: "S1"})
	assert.NotNil(t, m.Distances)
}

func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("PARKING_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PARKING_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("parking_test_" + newID())
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	require.NoError(t, Migrate(ctx, db))
	store := NewStore(db)

	c, err := store.Complexes.Create(ctx, &domain.ParkingComplex{Name: "Test"})
	require.NoError(t, err)
	ep, err := store.EntryPoints.Create(ctx, &domain.EntryPoint{Name: "A", ParkingComplexID: c.ID})
	require.NoError(t, err)

	_, err = store.Slots.Create(ctx, &domain.ParkingSlot{Name: "far", ParkingComplexID: c.ID, Type: domain.SizeSmall})
	require.NoError(t, err)
	near, err := store.Slots.Create(ctx, &domain.ParkingSlot{
		Name: "near", ParkingComplexID: c.ID, Type: domain.SizeLarge,
		Distances: map[string]float64{ep.ID: 3},
	})
	require.NoError(t, err)

	got, err := store.Slots.FindNearestAvailable(ctx, c.ID, ep.ID, domain.SizeSmall)
	require.NoError(t, err)
	assert.Equal(t, near.ID, got.ID)

	require.NoError(t, store.Slots.MarkOccupied(ctx, near.ID))
	assert.ErrorIs(t, store.Slots.MarkOccupied(ctx, near.ID), repository.ErrSlotUnavailable)

	s, err := store.Sessions.Create(ctx, &domain.ParkingSession{PlateNumber: "ABC1234", ParkTime: time.Now().UTC()})
	require.NoError(t, err)
	update := domain.SessionUpdate{UnparkTime: time.Now().UTC()}
	require.NoError(t, store.Sessions.Close(ctx, s.ID, update))
	assert.ErrorIs(t, store.Sessions.Close(ctx, s.ID, update), repository.ErrNoActiveSession)
}
