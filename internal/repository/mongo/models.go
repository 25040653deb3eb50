package mongo

import (
	"time"

	"github.com/vinieshwan/parking-system/internal/domain"
	"gopkg.in/guregu/null.v4"
)

// ==================== Parking complex ====================

type complexModel struct {
	ID                      string    `bson:"_id"`
	Name                    string    `bson:"name"`
	NoOfSlots               int       `bson:"noOfSlots"`
	NoOfEntryPoints         int       `bson:"noOfEntryPoints"`
	FlatRate                float64   `bson:"flatRate"`
	FlatRateHours           float64   `bson:"flatRateHours"`
	DayRate                 float64   `bson:"dayRate"`
	ContinuousHourThreshold float64   `bson:"continuousHourThreshold"`
	CreatedAt               time.Time `bson:"createdAt"`
	UpdatedAt               time.Time `bson:"updatedAt"`
}

func toComplexModel(c *domain.ParkingComplex) *complexModel {
	return &complexModel{
		ID:                      c.ID,
		Name:                    c.Name,
		NoOfSlots:               c.NoOfSlots,
		NoOfEntryPoints:         c.NoOfEntryPoints,
		FlatRate:                c.FlatRate.Rate,
		FlatRateHours:           c.FlatRate.Hours,
		DayRate:                 c.DayRate,
		ContinuousHourThreshold: c.ContinuousHourThreshold,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
	}
}

func fromComplexModel(m *complexModel) *domain.ParkingComplex {
	return &domain.ParkingComplex{
		ID:                      m.ID,
		Name:                    m.Name,
		NoOfSlots:               m.NoOfSlots,
		NoOfEntryPoints:         m.NoOfEntryPoints,
		FlatRate:                domain.FlatRate{Rate: m.FlatRate, Hours: m.FlatRateHours},
		DayRate:                 m.DayRate,
		ContinuousHourThreshold: m.ContinuousHourThreshold,
		CreatedAt:               m.CreatedAt.UTC(),
		UpdatedAt:               m.UpdatedAt.UTC(),
	}
}

// ==================== Entry point ====================

type entryPointModel struct {
	ID               string    `bson:"_id"`
	Name             string    `bson:"name"`
	ParkingComplexID string    `bson:"parkingComplexId"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

func fromEntryPointModel(m *entryPointModel) *domain.EntryPoint {
	return &domain.EntryPoint{
		ID:               m.ID,
		Name:             m.Name,
		ParkingComplexID: m.ParkingComplexID,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

// ==================== Parking slot ====================

type slotModel struct {
	ID               string             `bson:"_id"`
	Name             string             `bson:"name"`
	ParkingComplexID string             `bson:"parkingComplexId"`
	Type             int                `bson:"type"`
	RatePerHour      float64            `bson:"ratePerHour"`
	IsOccupied       bool               `bson:"isOccupied"`
	Distances        map[string]float64 `bson:"distances"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func toSlotModel(s *domain.ParkingSlot) *slotModel {
	distances := s.Distances
	if distances == nil {
		distances = map[string]float64{}
	}
	return &slotModel{
		ID:               s.ID,
		Name:             s.Name,
		ParkingComplexID: s.ParkingComplexID,
		Type:             int(s.Type),
		RatePerHour:      s.RatePerHour,
		IsOccupied:       s.IsOccupied,
		Distances:        distances,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func fromSlotModel(m *slotModel) *domain.ParkingSlot {
	return &domain.ParkingSlot{
		ID:               m.ID,
		Name:             m.Name,
		ParkingComplexID: m.ParkingComplexID,
		Type:             domain.SizeClass(m.Type),
		RatePerHour:      m.RatePerHour,
		IsOccupied:       m.IsOccupied,
		Distances:        m.Distances,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

// ==================== Parking session ====================

type sessionModel struct {
	ID                 string     `bson:"_id"`
	PlateNumber        string     `bson:"plateNumber"`
	VehicleType        int        `bson:"vehicleType"`
	ParkingSlotID      string     `bson:"parkingSlotId"`
	ParkingSlotType    int        `bson:"parkingSlotType"`
	ParkingSlotRate    float64    `bson:"parkingSlotRate"`
	EntryPointID       string     `bson:"entryPointId"`
	ParkingComplexID   string     `bson:"parkingComplexId"`
	ParkTime           time.Time  `bson:"parkTime"`
	UnparkTime         *time.Time `bson:"unparkTime"`
	InitialParkTime    *time.Time `bson:"initialParkTime"`
	IsContinuous       bool       `bson:"isContinuous"`
	IsFlatRateConsumed bool       `bson:"isFlatRateConsumed"`
	CreatedAt          time.Time  `bson:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt"`
}

func toSessionModel(s *domain.ParkingSession) *sessionModel {
	return &sessionModel{
		ID:                 s.ID,
		PlateNumber:        s.PlateNumber,
		VehicleType:        int(s.VehicleType),
		ParkingSlotID:      s.ParkingSlotID,
		ParkingSlotType:    int(s.ParkingSlotType),
		ParkingSlotRate:    s.ParkingSlotRate,
		EntryPointID:       s.EntryPointID,
		ParkingComplexID:   s.ParkingComplexID,
		ParkTime:           s.ParkTime,
		UnparkTime:         s.UnparkTime.Ptr(),
		InitialParkTime:    s.InitialParkTime.Ptr(),
		IsContinuous:       s.IsContinuous,
		IsFlatRateConsumed: s.IsFlatRateConsumed,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSessionModel(m *sessionModel) *domain.ParkingSession {
	return &domain.ParkingSession{
		ID:                 m.ID,
		PlateNumber:        m.PlateNumber,
		VehicleType:        domain.SizeClass(m.VehicleType),
		ParkingSlotID:      m.ParkingSlotID,
		ParkingSlotType:    domain.SizeClass(m.ParkingSlotType),
		ParkingSlotRate:    m.ParkingSlotRate,
		EntryPointID:       m.EntryPointID,
		ParkingComplexID:   m.ParkingComplexID,
		ParkTime:           m.ParkTime.UTC(),
		UnparkTime:         utcTime(m.UnparkTime),
		InitialParkTime:    utcTime(m.InitialParkTime),
		IsContinuous:       m.IsContinuous,
		IsFlatRateConsumed: m.IsFlatRateConsumed,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

func utcTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

// ==================== User ====================

type userModel struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func fromUserModel(m *userModel) *domain.User {
	return &domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.PasswordHash,
		Role:      m.Role,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}
