// Package phase classifies a trip's lifecycle from its dates.
// Every function here is pure: the result depends only on the arguments, so
// callers recompute on each read instead of storing a phase.
package phase

import (
	"math"
	"time"
)

// Phase is the derived lifecycle stage of a trip.
type Phase string

const (
	Planning  Phase = "planning"
	PreTrip   Phase = "pre-trip"
	Active    Phase = "active"
	Completed Phase = "completed"
)

// PreTripWindowDays is how close (in days) the start must be for a trip to
// leave planning and enter pre-trip.
const PreTripWindowDays = 7

const day = 24 * time.Hour

// Normalize returns the calendar date of t, as read in t's own location,
// expressed as UTC midnight. Comparing normalized values compares calendar
// dates, so a viewer in any timezone sees the same phase for the same
// nominal dates.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify maps a trip's dates and today's date to a Phase.
//
// Both ends are inclusive: a trip that starts today is active, and a trip
// that ends today is still active until the following day.
func Classify(start, end *time.Time, today time.Time) Phase {
	if start == nil || end == nil {
		return Planning
	}
	s, e, now := Normalize(*start), Normalize(*end), Normalize(today)

	if now.After(e) {
		return Completed
	}
	if !now.Before(s) {
		return Active
	}
	if ceilDays(s.Sub(now)) <= PreTripWindowDays {
		return PreTrip
	}
	return Planning
}

// DaysUntilStart returns the whole days left before the trip starts, floored
// at 0 once the trip has begun. It returns -1 when there is no start date;
// callers must check for the sentinel before treating the result as a count.
func DaysUntilStart(start *time.Time, today time.Time) int {
	if start == nil {
		return -1
	}
	d := ceilDays(Normalize(*start).Sub(Normalize(today)))
	if d < 0 {
		return 0
	}
	return d
}

// CurrentDayIndex returns the 1-based day of the trip that today falls on,
// clamped into [1, durationDays]. Without a start date it returns 1.
func CurrentDayIndex(start *time.Time, durationDays int, today time.Time) int {
	if start == nil {
		return 1
	}
	idx := int(math.Floor(Normalize(today).Sub(Normalize(*start)).Hours()/24)) + 1
	upper := max(durationDays, 1)
	return min(max(idx, 1), upper)
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}
