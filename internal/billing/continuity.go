package billing

import (
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/vinieshwan/parking-system/internal/domain"
)

// IsContinuous reports whether a park at newParkTime continues the tariff
// clock of a session that ended at prevUnparkTime. The comparison is not rounded.
func IsContinuous(prevUnparkTime, newParkTime time.Time, thresholdHours float64) bool {
	return HoursBetween(newParkTime, prevUnparkTime) <= thresholdHours
}

// PreviousActivity is the slice of the latest session that the next park depends on.
type PreviousActivity struct {
	ParkTime           null.Time
	UnparkTime         null.Time
	InitialParkTime    null.Time
	IsFlatRateConsumed bool
}

// PreviousFrom extracts the previous activity of a session, nil-safe.
func PreviousFrom(s *domain.ParkingSession) *PreviousActivity {
	if s == nil {
		return nil
	}
	prev := &PreviousActivity{
		UnparkTime:         s.UnparkTime,
		InitialParkTime:    s.InitialParkTime,
		IsFlatRateConsumed: s.IsFlatRateConsumed,
	}
	if !s.ParkTime.IsZero() {
		prev.ParkTime = null.TimeFrom(s.ParkTime)
	}
	return prev
}

// PrepareSession fills the continuity fields of a new session draft.
//
// Without a closed previous session the draft starts a fresh flat-rate window.
// When the previous session ended within the complex's threshold the draft is
// continuous: it inherits the flat-rate flag and the origin of the chain
// (the carried initial park time, else the previous park time).
func PrepareSession(draft domain.ParkingSession, policy domain.RatePolicy, prev *PreviousActivity) domain.ParkingSession {
	s := draft
	s.IsContinuous = false
	s.IsFlatRateConsumed = false
	s.InitialParkTime = null.Time{}

	if prev == nil {
		return s
	}

	s.IsFlatRateConsumed = prev.IsFlatRateConsumed
	if prev.UnparkTime.Valid {
		s.IsContinuous = IsContinuous(prev.UnparkTime.Time, s.ParkTime, policy.ContinuousHourThreshold)
	}

	if !s.IsContinuous {
		s.IsFlatRateConsumed = false
		return s
	}

	if prev.ParkTime.Valid {
		if prev.InitialParkTime.Valid {
			s.InitialParkTime = prev.InitialParkTime
		} else {
			s.InitialParkTime = prev.ParkTime
		}
	}
	return s
}
