// Package mongo stores parking data in MongoDB. Documents use hex ObjectIDs
// as string keys so they line up with the resource id validator.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/repository"
)

// Collection name constants.
const (
	colComplexes   = "parking_complexes"
	colEntryPoints = "entry_points"
	colSlots       = "parking_slots"
	colSessions    = "parking_sessions"
	colUsers       = "users"
)

var (
	_ repository.ParkingComplexRepository = (*complexRepo)(nil)
	_ repository.EntryPointRepository     = (*entryPointRepo)(nil)
	_ repository.ParkingSlotRepository    = (*slotRepo)(nil)
	_ repository.ParkingSessionRepository = (*sessionRepo)(nil)
	_ repository.UserRepository           = (*userRepo)(nil)
)

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("parking/mongo: ping: %w", err)
	}
	return client, nil
}

// NewStore wires every repository onto db.
func NewStore(db *mongo.Database) repository.Store {
	return repository.Store{
		Complexes:   &complexRepo{db: db},
		EntryPoints: &entryPointRepo{db: db},
		Slots:       &slotRepo{db: db},
		Sessions:    &sessionRepo{db: db},
		Users:       &userRepo{db: db},
	}
}

// Migrate creates indexes for all collections.
func Migrate(ctx context.Context, db *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("parking/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colComplexes: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colEntryPoints: {
			{Keys: bson.D{{Key: "parkingComplexId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colSlots: {
			{Keys: bson.D{{Key: "parkingComplexId", Value: 1}, {Key: "isOccupied", Value: 1}, {Key: "type", Value: 1}}},
		},
		colSessions: {
			{Keys: bson.D{{Key: "plateNumber", Value: 1}, {Key: "parkTime", Value: -1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

func newID() string { return bson.NewObjectID().Hex() }

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// ==================== Parking complex ====================

type complexRepo struct{ db *mongo.Database }

func (r *complexRepo) Create(ctx context.Context, c *domain.ParkingComplex) (*domain.ParkingComplex, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if _, err := r.db.Collection(colComplexes).InsertOne(ctx, toComplexModel(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: parking complex %q", repository.ErrDuplicateEntry, c.Name)
		}
		return nil, fmt.Errorf("parking/mongo: create complex: %w", err)
	}
	return c, nil
}

func (r *complexRepo) FindByID(ctx context.Context, id string) (*domain.ParkingComplex, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *complexRepo) FindByName(ctx context.Context, name string) (*domain.ParkingComplex, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *complexRepo) FindAll(ctx context.Context) ([]domain.ParkingComplex, error) {
	cur, err := r.db.Collection(colComplexes).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: list complexes: %w", err)
	}
	var models []complexModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("parking/mongo: list complexes: %w", err)
	}
	out := make([]domain.ParkingComplex, 0, len(models))
	for i := range models {
		out = append(out, *fromComplexModel(&models[i]))
	}
	return out, nil
}

func (r *complexRepo) findOne(ctx context.Context, filter bson.M) (*domain.ParkingComplex, error) {
	var m complexModel
	if err := r.db.Collection(colComplexes).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("parking/mongo: get complex: %w", err)
	}
	return fromComplexModel(&m), nil
}

// ==================== Entry points ====================

type entryPointRepo struct{ db *mongo.Database }

func (r *entryPointRepo) Create(ctx context.Context, ep *domain.EntryPoint) (*domain.EntryPoint, error) {
	if ep.ID == "" {
		ep.ID = newID()
	}
	ep.CreatedAt = now()
	ep.UpdatedAt = ep.CreatedAt
	m := entryPointModel{
		ID:               ep.ID,
		Name:             ep.Name,
		ParkingComplexID: ep.ParkingComplexID,
		CreatedAt:        ep.CreatedAt,
		UpdatedAt:        ep.UpdatedAt,
	}
	if _, err := r.db.Collection(colEntryPoints).InsertOne(ctx, m); err != nil {
		return nil, fmt.Errorf("parking/mongo: create entry point: %w", err)
	}
	_, err := r.db.Collection(colComplexes).UpdateOne(ctx,
		bson.M{"_id": ep.ParkingComplexID},
		bson.M{"$inc": bson.M{"noOfEntryPoints": 1}, "$set": bson.M{"updatedAt": ep.CreatedAt}},
	)
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: bump entry point count: %w", err)
	}
	return ep, nil
}

func (r *entryPointRepo) FindByID(ctx context.Context, id string) (*domain.EntryPoint, error) {
	var m entryPointModel
	if err := r.db.Collection(colEntryPoints).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("parking/mongo: get entry point: %w", err)
	}
	return fromEntryPointModel(&m), nil
}

func (r *entryPointRepo) ListByComplexID(ctx context.Context, complexID string) ([]domain.EntryPoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "name", Value: 1}})
	cur, err := r.db.Collection(colEntryPoints).Find(ctx, bson.M{"parkingComplexId": complexID}, opts)
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: list entry points: %w", err)
	}
	var models []entryPointModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("parking/mongo: list entry points: %w", err)
	}
	out := make([]domain.EntryPoint, 0, len(models))
	for i := range models {
		out = append(out, *fromEntryPointModel(&models[i]))
	}
	return out, nil
}

// ==================== Parking slots ====================

type slotRepo struct{ db *mongo.Database }

func (r *slotRepo) Create(ctx context.Context, s *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt
	if _, err := r.db.Collection(colSlots).InsertOne(ctx, toSlotModel(s)); err != nil {
		return nil, fmt.Errorf("parking/mongo: create slot: %w", err)
	}
	return s, nil
}

func (r *slotRepo) FindByID(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	var m slotModel
	if err := r.db.Collection(colSlots).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("parking/mongo: get slot: %w", err)
	}
	return fromSlotModel(&m), nil
}

// FindNearestAvailable sorts on the entry point's distance. A missing distance
// would sort first in MongoDB, so it is replaced by +Inf before sorting.
func (r *slotRepo) FindNearestAvailable(ctx context.Context, complexID, entryPointID string, minType domain.SizeClass) (*domain.ParkingSlot, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"parkingComplexId": complexID,
			"isOccupied":       false,
			"type":             bson.M{"$gte": int(minType)},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"_distance": bson.M{"$ifNull": bson.A{"$distances." + entryPointID, math.Inf(1)}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_distance", Value: 1}, {Key: "type", Value: 1}, {Key: "name", Value: 1}}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$project", Value: bson.M{"_distance": 0}}},
	}
	cur, err := r.db.Collection(colSlots).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: nearest slot: %w", err)
	}
	var models []slotModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("parking/mongo: nearest slot: %w", err)
	}
	if len(models) == 0 {
		return nil, repository.ErrNotFound
	}
	return fromSlotModel(&models[0]), nil
}

func (r *slotRepo) MarkOccupied(ctx context.Context, id string) error {
	res, err := r.db.Collection(colSlots).UpdateOne(ctx,
		bson.M{"_id": id, "isOccupied": false},
		bson.M{"$set": bson.M{"isOccupied": true, "updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("parking/mongo: mark slot occupied: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrSlotUnavailable
	}
	return nil
}

func (r *slotRepo) Release(ctx context.Context, id string) error {
	res, err := r.db.Collection(colSlots).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isOccupied": false, "updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("parking/mongo: release slot: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *slotRepo) CountOccupied(ctx context.Context, complexID string) (int, error) {
	n, err := r.db.Collection(colSlots).CountDocuments(ctx, bson.M{"parkingComplexId": complexID, "isOccupied": true})
	if err != nil {
		return 0, fmt.Errorf("parking/mongo: count occupied: %w", err)
	}
	return int(n), nil
}

// ==================== Parking sessions ====================

type sessionRepo struct{ db *mongo.Database }

func (r *sessionRepo) Create(ctx context.Context, s *domain.ParkingSession) (*domain.ParkingSession, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	s.PlateNumber = strings.ToLower(s.PlateNumber)
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt
	if _, err := r.db.Collection(colSessions).InsertOne(ctx, toSessionModel(s)); err != nil {
		return nil, fmt.Errorf("parking/mongo: create session: %w", err)
	}
	return s, nil
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

func (r *sessionRepo) ListByPlate(ctx context.Context, plateNumber string, limit int) ([]domain.ParkingSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "parkTime", Value: -1}, {Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.db.Collection(colSessions).Find(ctx, bson.M{"plateNumber": strings.ToLower(plateNumber)}, opts)
	if err != nil {
		return nil, fmt.Errorf("parking/mongo: list sessions: %w", err)
	}
	var models []sessionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("parking/mongo: list sessions: %w", err)
	}
	out := make([]domain.ParkingSession, 0, len(models))
	for i := range models {
		out = append(out, *fromSessionModel(&models[i]))
	}
	return out, nil
}

func (r *sessionRepo) Close(ctx context.Context, id string, update domain.SessionUpdate) error {
	res, err := r.db.Collection(colSessions).UpdateOne(ctx,
		bson.M{"_id": id, "unparkTime": nil},
		bson.M{"$set": bson.M{
			"unparkTime":         update.UnparkTime.UTC(),
			"isFlatRateConsumed": update.IsFlatRateConsumed,
			"updatedAt":          now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("parking/mongo: close session: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.db.Collection(colSessions).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("parking/mongo: close session: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrNoActiveSession
}

// ==================== Users ====================

type userRepo struct{ db *mongo.Database }

func (r *userRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	u.ID = newID()
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	m := userModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.Password,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if _, err := r.db.Collection(colUsers).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: username %q", repository.ErrDuplicateEntry, u.Username)
		}
		return nil, fmt.Errorf("parking/mongo: create user: %w", err)
	}
	return u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var m userModel
	if err := r.db.Collection(colUsers).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("parking/mongo: get user: %w", err)
	}
	return fromUserModel(&m), nil
}
