package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession is one park/unpark record of a plate number. A closed
// session is never reopened; re-entering creates a new row.
type ParkingSession struct {
	ID                 string    `json:"id"`
	PlateNumber        string    `json:"plateNumber"`
	VehicleType        SizeClass `json:"vehicleType"`
	ParkingSlotID      string    `json:"parkingSlotId"`
	ParkingSlotType    SizeClass `json:"parkingSlotType"`
	ParkingSlotRate    float64   `json:"parkingSlotRate"`
	EntryPointID       string    `json:"entryPointId"`
	ParkingComplexID   string    `json:"parkingComplexId"`
	ParkTime           time.Time `json:"parkTime"`
	UnparkTime         null.Time `json:"unparkTime"`
	InitialParkTime    null.Time `json:"initialParkTime"`
	IsContinuous       bool      `json:"isContinuous"`
	IsFlatRateConsumed bool      `json:"isFlatRateConsumed"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (s *ParkingSession) IsOpen() bool {
	return !s.UnparkTime.Valid
}

// SessionUpdate holds the fields written when a session is closed.
type SessionUpdate struct {
	UnparkTime         time.Time
	IsFlatRateConsumed bool
}

// VehicleDetails describes a vehicle entering the complex. ParkTime defaults
// to now when empty.
type VehicleDetails struct {
	PlateNumber string
	Type        SizeClass
	ParkTime    null.Time
}

type UnparkDetails struct {
	PlateNumber string
	UnparkTime  null.Time
}

type ParkRequestDTO struct {
	PlateNumber   string     `json:"plateNumber" binding:"required,min=4,max=10"`
	ParkingSlotID string     `json:"parkingSlotId" binding:"required,resourceid"`
	EntryPointID  string     `json:"entryPointId" binding:"required,resourceid"`
	Type          string     `json:"type" binding:"required,oneof=small medium large 0 1 2"`
	ParkTime      *time.Time `json:"parkTime,omitempty"`
}

type UnparkRequestDTO struct {
	PlateNumber string     `json:"plateNumber" binding:"required,min=4,max=10"`
	UnparkTime  *time.Time `json:"unparkTime,omitempty"`
}

type UnparkResponseDTO struct {
	Payable float64 `json:"payable"`
}
