package domain

import "time"

type ParkingEventType string

const (
	EventParked   ParkingEventType = "park"
	EventUnparked ParkingEventType = "unpark"
)

// ParkingEvent is pushed to websocket subscribers after a successful park or unpark.
type ParkingEvent struct {
	EventID          string           `json:"eventId"`
	Type             ParkingEventType `json:"type"`
	PlateNumber      string           `json:"plateNumber"`
	ParkingSlotID    string           `json:"parkingSlotId"`
	ParkingComplexID string           `json:"parkingComplexId"`
	Payable          *float64         `json:"payable,omitempty"`
	At               time.Time        `json:"at"`
}

// SlotStateMessage is published to the slot indicator devices.
type SlotStateMessage struct {
	ParkingSlotID    string    `json:"parkingSlotId"`
	ParkingComplexID string    `json:"parkingComplexId"`
	IsOccupied       bool      `json:"isOccupied"`
	PlateNumber      string    `json:"plateNumber,omitempty"`
	At               time.Time `json:"at"`
}

type GateAction string

const (
	GateActionPark   GateAction = "park"
	GateActionUnpark GateAction = "unpark"
)

// GateCommand is the queue message emitted by entry and exit gate kiosks.
type GateCommand struct {
	Action        GateAction `json:"action"`
	PlateNumber   string     `json:"plateNumber"`
	ParkingSlotID string     `json:"parkingSlotId,omitempty"`
	EntryPointID  string     `json:"entryPointId,omitempty"`
	Type          string     `json:"type,omitempty"`
	ParkTime      *time.Time `json:"parkTime,omitempty"`
	UnparkTime    *time.Time `json:"unparkTime,omitempty"`
}
