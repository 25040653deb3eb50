// Package billing holds the tariff logic of a parking complex: continuity
// between consecutive sessions of a plate and the fee owed on unpark.
package billing

import "time"

const (
	OneDayInHours = 24
	millisPerHour = 3_600_000
)

// HoursBetween returns later-earlier in fractional hours at millisecond
// precision. Swapped arguments give a negative result.
func HoursBetween(later, earlier time.Time) float64 {
	return float64(later.UnixMilli()-earlier.UnixMilli()) / millisPerHour
}
