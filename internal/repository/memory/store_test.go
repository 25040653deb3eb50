package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

func seedSlots(t *testing.T, store repository.Store, complexID string, slots ...domain.ParkingSlot) []*domain.ParkingSlot {
	t.Helper()
	out := make([]*domain.ParkingSlot, 0, len(slots))
	for i := range slots {
		slots[i].ParkingComplexID = complexID
		created, err := store.Slots.Create(context.Background(), &slots[i])
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestComplexCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := New()

	c, err := store.Complexes.Create(ctx, &domain.ParkingComplex{Name: "Ayala"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	_, err = store.Complexes.Create(ctx, &domain.ParkingComplex{Name: "Ayala"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	byName, err := store.Complexes.FindByName(ctx, "Ayala")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	_, err = store.Complexes.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindNearestAvailable(t *testing.T) {
	ctx := context.Background()
	store := New()

	slots := seedSlots(t, store, "c1",
		domain.ParkingSlot{Name: "S1", Type: domain.SizeSmall, Distances: map[string]float64{"ep1": 5}},
		domain.ParkingSlot{Name: "M1", Type: domain.SizeMedium, Distances: map[string]float64{"ep1": 2}},
		domain.ParkingSlot{Name: "L1", Type: domain.SizeLarge, Distances: map[string]float64{"ep1": 2}},
		domain.ParkingSlot{Name: "L2", Type: domain.SizeLarge},
	)
	seedSlots(t, store, "other", domain.ParkingSlot{Name: "X", Type: domain.SizeLarge, Distances: map[string]float64{"ep1": 0}})

	got, err := store.Slots.FindNearestAvailable(ctx, "c1", "ep1", domain.SizeSmall)
	require.NoError(t, err)
	assert.Equal(t, "M1", got.Name, "ties broken by the smaller class")

	got, err = store.Slots.FindNearestAvailable(ctx, "c1", "ep1", domain.SizeLarge)
	require.NoError(t, err)
	assert.Equal(t, "L1", got.Name)

	require.NoError(t, store.Slots.MarkOccupied(ctx, slots[2].ID))
	got, err = store.Slots.FindNearestAvailable(ctx, "c1", "ep1", domain.SizeLarge)
	require.NoError(t, err)
	assert.Equal(t, "L2", got.Name, "slots without a distance come last")

	require.NoError(t, store.Slots.MarkOccupied(ctx, slots[3].ID))
	_, err = store.Slots.FindNearestAvailable(ctx, "c1", "ep1", domain.SizeLarge)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindNearestAvailableReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	seedSlots(t, store, "c1", domain.ParkingSlot{Name: "S1", Distances: map[string]float64{"ep1": 1}})

	got, err := store.Slots.FindNearestAvailable(ctx, "c1", "ep1", domain.SizeSmall)
	require.NoError(t, err)
	got.Distances["ep1"] = 99
	got.IsOccupied = true

	again, err := store.Slots.FindByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Distances["ep1"])
	assert.False(t, again.IsOccupied)
}

func TestMarkOccupiedIsConditional(t *testing.T) {
	ctx := context.Background()
	store := New()
	slot := seedSlots(t, store, "c1", domain.ParkingSlot{Name: "S1"})[0]

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Slots.MarkOccupied(ctx, slot.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, repository.ErrSlotUnavailable):
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 15, taken)

	n, err := store.Slots.CountOccupied(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Slots.Release(ctx, slot.ID))
	require.NoError(t, store.Slots.Release(ctx, slot.ID))
	assert.ErrorIs(t, store.Slots.MarkOccupied(ctx, "missing"), repository.ErrNotFound)
	assert.ErrorIs(t, store.Slots.Release(ctx, "missing"), repository.ErrNotFound)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := New()
	t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := store.Sessions.FindLatestByPlate(ctx, "abc1234")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	first, err := store.Sessions.Create(ctx, &domain.ParkingSession{
		PlateNumber: "abc1234",
		ParkTime:    t0,
		UnparkTime:  null.TimeFrom(t0.Add(time.Hour)),
	})
	require.NoError(t, err)
	second, err := store.Sessions.Create(ctx, &domain.ParkingSession{PlateNumber: "abc1234", ParkTime: t0.Add(2 * time.Hour)})
	require.NoError(t, err)

	latest, err := store.Sessions.FindLatestByPlate(ctx, "ABC1234")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.True(t, latest.IsOpen())

	update := domain.SessionUpdate{UnparkTime: t0.Add(3 * time.Hour), IsFlatRateConsumed: true}
	require.NoError(t, store.Sessions.Close(ctx, second.ID, update))
	assert.ErrorIs(t, store.Sessions.Close(ctx, second.ID, update), repository.ErrNoActiveSession)
	assert.ErrorIs(t, store.Sessions.Close(ctx, first.ID, update), repository.ErrNoActiveSession)
	assert.ErrorIs(t, store.Sessions.Close(ctx, "missing", update), repository.ErrNotFound)

	history, err := store.Sessions.ListByPlate(ctx, "abc1234", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.True(t, history[0].IsFlatRateConsumed)
	assert.Equal(t, t0.Add(3*time.Hour), history[0].UnparkTime.Time)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := New()

	u, err := store.Users.Create(ctx, &domain.User{Username: "admin", Password: "hash", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = store.Users.Create(ctx, &domain.User{Username: "admin"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	got, err := store.Users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = store.Users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLatestSessionTieBreaksOnCreation(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := t0
	store := newWithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	older, err := store.Sessions.Create(ctx, &domain.ParkingSession{
		PlateNumber: "abc1234",
		ParkTime:    t0,
		UnparkTime:  null.TimeFrom(t0),
	})
	require.NoError(t, err)
	newer, err := store.Sessions.Create(ctx, &domain.ParkingSession{PlateNumber: "abc1234", ParkTime: t0})
	require.NoError(t, err)

	latest, err := store.Sessions.FindLatestByPlate(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	history, err := store.Sessions.ListByPlate(ctx, "abc1234", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{newer.ID, older.ID}, []string{history[0].ID, history[1].ID})
}
