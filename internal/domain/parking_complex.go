package domain

import "time"

type FlatRate struct {
	Rate  float64 `json:"rate"`
	Hours float64 `json:"hours"`
}

// RatePolicy is the tariff of a parking complex. It is read-only for billing.
type RatePolicy struct {
	FlatRate                FlatRate
	DayRate                 float64
	ContinuousHourThreshold float64
}

type ParkingComplex struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	NoOfSlots               int       `json:"noOfSlots"`
	NoOfEntryPoints         int       `json:"noOfEntryPoints"`
	FlatRate                FlatRate  `json:"flatRate"`
	DayRate                 float64   `json:"dayRate"`
	ContinuousHourThreshold float64   `json:"continuousHourThreshold"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func (c *ParkingComplex) RatePolicy() RatePolicy {
	return RatePolicy{
		FlatRate:                c.FlatRate,
		DayRate:                 c.DayRate,
		ContinuousHourThreshold: c.ContinuousHourThreshold,
	}
}
