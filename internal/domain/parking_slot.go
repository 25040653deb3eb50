package domain

import "time"

type ParkingSlot struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ParkingComplexID string             `json:"parkingComplexId"`
	Type             SizeClass          `json:"type"`
	RatePerHour      float64            `json:"ratePerHour"`
	IsOccupied       bool               `json:"isOccupied"`
	Distances        map[string]float64 `json:"distances"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// DistanceTo returns the distance from the given entry point. Slots without a
// recorded distance sort last.
func (s *ParkingSlot) DistanceTo(entryPointID string) (float64, bool) {
	d, ok := s.Distances[entryPointID]
	return d, ok
}

type FindSlotDTO struct {
	ParkingComplexID string `uri:"complexId" binding:"required,resourceid"`
	EntryPointID     string `uri:"entryPointId" binding:"required,resourceid"`
	Type             string `uri:"type" binding:"required,oneof=small medium large 0 1 2"`
}
