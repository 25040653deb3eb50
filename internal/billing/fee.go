package billing

import (
	"errors"
	"math"

	"github.com/vinieshwan/parking-system/internal/domain"
)

var ErrSessionOpen = errors.New("billing: session has no unpark time")

type Fee struct {
	Payable            float64
	IsFlatRateConsumed bool
}

// CalculateFee computes the amount owed for a closed session. Continuous
// sessions bill against the chain origin and never open a new flat-rate window.
func CalculateFee(s domain.ParkingSession, policy domain.RatePolicy) (Fee, error) {
	if !s.UnparkTime.Valid {
		return Fee{}, ErrSessionOpen
	}
	if s.IsContinuous {
		return continuousRate(s, policy), nil
	}
	return normalRate(s, policy), nil
}

func normalRate(s domain.ParkingSession, policy domain.RatePolicy) Fee {
	flat := policy.FlatRate
	elapsed := math.Ceil(HoursBetween(s.UnparkTime.Time, s.ParkTime)) - flat.Hours

	switch {
	case elapsed <= 0:
		return Fee{Payable: flat.Rate, IsFlatRateConsumed: s.IsFlatRateConsumed}
	case elapsed >= OneDayInHours:
		// the flat-rate flag is left as is on the multi-day path
		return Fee{
			Payable:            flat.Rate + DaysFee(elapsed, s.ParkingSlotRate, policy.DayRate),
			IsFlatRateConsumed: s.IsFlatRateConsumed,
		}
	default:
		return Fee{
			Payable:            flat.Rate + math.Ceil(elapsed)*s.ParkingSlotRate,
			IsFlatRateConsumed: true,
		}
	}
}

func continuousRate(s domain.ParkingSession, policy domain.RatePolicy) Fee {
	if s.IsFlatRateConsumed {
		hours := math.Ceil(HoursBetween(s.UnparkTime.Time, s.ParkTime))
		return Fee{Payable: hours * s.ParkingSlotRate, IsFlatRateConsumed: true}
	}

	origin := s.ParkTime
	if s.InitialParkTime.Valid {
		origin = s.InitialParkTime.Time
	}
	all := math.Ceil(HoursBetween(s.UnparkTime.Time, origin)) - policy.FlatRate.Hours

	switch {
	case all < 0:
		return Fee{Payable: 0, IsFlatRateConsumed: s.IsFlatRateConsumed}
	case all >= OneDayInHours:
		return Fee{
			Payable:            DaysFee(all, s.ParkingSlotRate, policy.DayRate),
			IsFlatRateConsumed: s.IsFlatRateConsumed,
		}
	default:
		return Fee{Payable: math.Ceil(all) * s.ParkingSlotRate, IsFlatRateConsumed: true}
	}
}

// DaysFee bills whole days at dayRate and the remainder at hourlyRate. The
// remainder is not rounded up.
func DaysFee(hours, hourlyRate, dayRate float64) float64 {
	days := math.Floor(math.Ceil(hours) / OneDayInHours)
	remainder := math.Mod(hours, OneDayInHours)
	return days*dayRate + remainder*hourlyRate
}
