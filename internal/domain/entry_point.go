package domain

import "time"

type EntryPoint struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ParkingComplexID string    `json:"parkingComplexId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type AddEntryPointDTO struct {
	ParkingComplexID string `json:"parkingComplexId" binding:"required,resourceid"`
	EntryPointName   string `json:"entryPointName" binding:"required,min=2"`
}
