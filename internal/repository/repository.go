package repository

import (
	"context"
	"errors"

	"github.com/vinieshwan/parking-system/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("record already exists")
	// ErrSlotUnavailable is returned when a conditional occupancy update finds
	// the slot already in the requested state.
	ErrSlotUnavailable = errors.New("parking slot is no longer available")
	// ErrNoActiveSession is returned when closing a session that is already closed.
	ErrNoActiveSession = errors.New("no active parking session")
)

type ParkingComplexRepository interface {
	Create(ctx context.Context, complex *domain.ParkingComplex) (*domain.ParkingComplex, error)
	FindByID(ctx context.Context, id string) (*domain.ParkingComplex, error)
	FindByName(ctx context.Context, name string) (*domain.ParkingComplex, error)
	FindAll(ctx context.Context) ([]domain.ParkingComplex, error)
}

type EntryPointRepository interface {
	Create(ctx context.Context, ep *domain.EntryPoint) (*domain.EntryPoint, error)
	FindByID(ctx context.Context, id string) (*domain.EntryPoint, error)
	ListByComplexID(ctx context.Context, complexID string) ([]domain.EntryPoint, error)
}

type ParkingSlotRepository interface {
	Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error)
	FindByID(ctx context.Context, id string) (*domain.ParkingSlot, error)
	// FindNearestAvailable returns the free slot of the complex with class >= minType
	// closest to the entry point, ties broken by the smaller class. ErrNotFound when none.
	FindNearestAvailable(ctx context.Context, complexID, entryPointID string, minType domain.SizeClass) (*domain.ParkingSlot, error)
	// MarkOccupied flips occupied false->true. ErrSlotUnavailable if the slot is taken.
	MarkOccupied(ctx context.Context, id string) error
	// Release sets occupied=false. Idempotent; ErrNotFound only for unknown ids.
	Release(ctx context.Context, id string) error
	CountOccupied(ctx context.Context, complexID string) (int, error)
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	// FindLatestByPlate returns the session with the latest park time. ErrNotFound when none.
	FindLatestByPlate(ctx context.Context, plateNumber string) (*domain.ParkingSession, error)
	ListByPlate(ctx context.Context, plateNumber string, limit int) ([]domain.ParkingSession, error)
	// Close writes the unpark fields on a session that is still open.
	// ErrNotFound for unknown ids, ErrNoActiveSession if it was already closed.
	Close(ctx context.Context, id string, update domain.SessionUpdate) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Complexes   ParkingComplexRepository
	EntryPoints EntryPointRepository
	Slots       ParkingSlotRepository
	Sessions    ParkingSessionRepository
	Users       UserRepository
}
