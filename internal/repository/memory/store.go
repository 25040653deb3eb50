// Package memory is a mutex-guarded in-process store. It backs the service
// tests and the "memory" storage driver.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

type db struct {
	mu sync.RWMutex

	complexes   map[string]domain.ParkingComplex
	entryPoints map[string]domain.EntryPoint
	slots       map[string]domain.ParkingSlot
	sessions    map[string]domain.ParkingSession
	users       map[string]domain.User

	now func() time.Time
}

// New returns a Store whose repositories share one in-memory database.
func New() repository.Store {
	return newWithClock(func() time.Time { return time.Now().UTC() })
}

func newWithClock(now func() time.Time) repository.Store {
	d := &db{
		complexes:   make(map[string]domain.ParkingComplex),
		entryPoints: make(map[string]domain.EntryPoint),
		slots:       make(map[string]domain.ParkingSlot),
		sessions:    make(map[string]domain.ParkingSession),
		users:       make(map[string]domain.User),
		now:         now,
	}
	return repository.Store{
		Complexes:   &complexRepo{d},
		EntryPoints: &entryPointRepo{d},
		Slots:       &slotRepo{d},
		Sessions:    &sessionRepo{d},
		Users:       &userRepo{d},
	}
}

var (
	_ repository.ParkingComplexRepository = (*complexRepo)(nil)
	_ repository.EntryPointRepository     = (*entryPointRepo)(nil)
	_ repository.ParkingSlotRepository    = (*slotRepo)(nil)
	_ repository.ParkingSessionRepository = (*sessionRepo)(nil)
	_ repository.UserRepository           = (*userRepo)(nil)
)

// ==================== Parking complex ====================

type complexRepo struct{ d *db }

func (r *complexRepo) Create(_ context.Context, c *domain.ParkingComplex) (*domain.ParkingComplex, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.complexes {
		if existing.Name == c.Name {
			return nil, repository.ErrDuplicateEntry
		}
	}
	out := *c
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = r.d.now()
	out.UpdatedAt = out.CreatedAt
	r.d.complexes[out.ID] = out
	return &out, nil
}

func (r *complexRepo) FindByID(_ context.Context, id string) (*domain.ParkingComplex, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	c, ok := r.d.complexes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *complexRepo) FindByName(_ context.Context, name string) (*domain.ParkingComplex, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, c := range r.d.complexes {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *complexRepo) FindAll(_ context.Context) ([]domain.ParkingComplex, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := make([]domain.ParkingComplex, 0, len(r.d.complexes))
	for _, c := range r.d.complexes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ==================== Entry points ====================

type entryPointRepo struct{ d *db }

func (r *entryPointRepo) Create(_ context.Context, ep *domain.EntryPoint) (*domain.EntryPoint, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := *ep
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = r.d.now()
	out.UpdatedAt = out.CreatedAt
	r.d.entryPoints[out.ID] = out

	if c, ok := r.d.complexes[out.ParkingComplexID]; ok {
		c.NoOfEntryPoints++
		c.UpdatedAt = out.CreatedAt
		r.d.complexes[c.ID] = c
	}
	return &out, nil
}

func (r *entryPointRepo) FindByID(_ context.Context, id string) (*domain.EntryPoint, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	ep, ok := r.d.entryPoints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ep, nil
}

func (r *entryPointRepo) ListByComplexID(_ context.Context, complexID string) ([]domain.EntryPoint, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := make([]domain.EntryPoint, 0)
	for _, ep := range r.d.entryPoints {
		if ep.ParkingComplexID == complexID {
			out = append(out, ep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ==================== Parking slots ====================

type slotRepo struct{ d *db }

func (r *slotRepo) Create(_ context.Context, s *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := copySlot(*s)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = r.d.now()
	out.UpdatedAt = out.CreatedAt
	r.d.slots[out.ID] = out
	res := copySlot(out)
	return &res, nil
}

func (r *slotRepo) FindByID(_ context.Context, id string) (*domain.ParkingSlot, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	s, ok := r.d.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	res := copySlot(s)
	return &res, nil
}

func (r *slotRepo) FindNearestAvailable(_ context.Context, complexID, entryPointID string, minType domain.SizeClass) (*domain.ParkingSlot, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var candidates []domain.ParkingSlot
	for _, s := range r.d.slots {
		if s.ParkingComplexID == complexID && !s.IsOccupied && minType.Fits(s.Type) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}

	distance := func(s domain.ParkingSlot) float64 {
		if d, ok := s.DistanceTo(entryPointID); ok {
			return d
		}
		return math.Inf(1)
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := distance(candidates[i]), distance(candidates[j])
		if di != dj {
			return di < dj
		}
		if candidates[i].Type != candidates[j].Type {
			return candidates[i].Type < candidates[j].Type
		}
		return candidates[i].Name < candidates[j].Name
	})
	res := copySlot(candidates[0])
	return &res, nil
}

func (r *slotRepo) MarkOccupied(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s, ok := r.d.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.IsOccupied {
		return repository.ErrSlotUnavailable
	}
	s.IsOccupied = true
	s.UpdatedAt = r.d.now()
	r.d.slots[id] = s
	return nil
}

func (r *slotRepo) Release(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s, ok := r.d.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsOccupied = false
	s.UpdatedAt = r.d.now()
	r.d.slots[id] = s
	return nil
}

func (r *slotRepo) CountOccupied(_ context.Context, complexID string) (int, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	n := 0
	for _, s := range r.d.slots {
		if s.ParkingComplexID == complexID && s.IsOccupied {
			n++
		}
	}
	return n, nil
}

func copySlot(s domain.ParkingSlot) domain.ParkingSlot {
	if s.Distances != nil {
		d := make(map[string]float64, len(s.Distances))
		for k, v := range s.Distances {
			d[k] = v
		}
		s.Distances = d
	}
	return s
}

// ==================== Parking sessions ====================

type sessionRepo struct{ d *db }

func (r *sessionRepo) Create(_ context.Context, s *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := *s
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = r.d.now()
	out.UpdatedAt = out.CreatedAt
	r.d.sessions[out.ID] = out
	return &out, nil
}

func (r *sessionRepo) FindLatestByPlate(ctx context.Context, plateNumber string) (*domain.ParkingSession, error) {
	sessions, err := r.ListByPlate(ctx, plateNumber, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, repository.ErrNotFound
	}
	return &sessions[0], nil
}

func (r *sessionRepo) ListByPlate(_ context.Context, plateNumber string, limit int) ([]domain.ParkingSession, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := make([]domain.ParkingSession, 0)
	for _, s := range r.d.sessions {
		if strings.EqualFold(s.PlateNumber, plateNumber) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParkTime.Equal(out[j].ParkTime) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ParkTime.After(out[j].ParkTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *sessionRepo) Close(_ context.Context, id string, update domain.SessionUpdate) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	s, ok := r.d.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !s.IsOpen() {
		return repository.ErrNoActiveSession
	}
	s.UnparkTime.SetValid(update.UnparkTime)
	s.IsFlatRateConsumed = update.IsFlatRateConsumed
	s.UpdatedAt = r.d.now()
	r.d.sessions[id] = s
	return nil
}

// ==================== Users ====================

type userRepo struct{ d *db }

func (r *userRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.users {
		if existing.Username == u.Username {
			return nil, repository.ErrDuplicateEntry
		}
	}
	out := *u
	out.ID = uuid.NewString()
	out.CreatedAt = r.d.now()
	out.UpdatedAt = out.CreatedAt
	r.d.users[out.ID] = out
	return &out, nil
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, u := range r.d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	u, ok := r.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
