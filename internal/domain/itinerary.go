package domain

import (
	"fmt"
	"strings"
)

// ItineraryDay is one generated (or hand-edited) day of the plan.
// Day is 1-indexed relative to the trip start.
type ItineraryDay struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"` // "2006-01-02", empty when the trip has no start date
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// Activity is a single scheduled item within an itinerary day.
type Activity struct {
	ID       string   `json:"id"`
	Time     string   `json:"time,omitempty"` // "09:00"; free text, display only
	Title    string   `json:"title"`
	Location string   `json:"location,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
}

// Clone returns a deep copy of d.
func (d ItineraryDay) Clone() ItineraryDay {
	c := d
	if d.Activities != nil {
		c.Activities = make([]Activity, len(d.Activities))
		for i, a := range d.Activities {
			a.Cost = cloneFloat(a.Cost)
			c.Activities[i] = a
		}
	}
	return c
}

// ValidateActivity enforces the rules shared by the client and the backend.
func ValidateActivity(a Activity) error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: activity title is required", ErrValidation)
	}
	if a.Cost != nil && *a.Cost < 0 {
		return fmt.Errorf("%w: activity cost must not be negative", ErrValidation)
	}
	return nil
}

// AddActivity appends a to the given day, creating the day if needed.
// Days stay ordered by day number.
func AddActivity(days []ItineraryDay, day int, a Activity) ([]ItineraryDay, error) {
	if day < 1 {
		return nil, fmt.Errorf("%w: day must be 1 or greater", ErrValidation)
	}
	if err := ValidateActivity(a); err != nil {
		return nil, err
	}
	out := Metadata{Itinerary: days}.Clone().Itinerary
	for i := range out {
		if out[i].Day == day {
			out[i].Activities = append(out[i].Activities, a)
			return out, nil
		}
	}
	newDay := ItineraryDay{Day: day, Title: fmt.Sprintf("Day %d", day), Activities: []Activity{a}}
	pos := len(out)
	for i := range out {
		if out[i].Day > day {
			pos = i
			break
		}
	}
	out = append(out, ItineraryDay{})
	copy(out[pos+1:], out[pos:])
	out[pos] = newDay
	return out, nil
}

// RemoveActivity deletes the activity with the given id from whichever day
// holds it. Empty days are kept so day numbering stays stable.
func RemoveActivity(days []ItineraryDay, activityID string) ([]ItineraryDay, error) {
	out := Metadata{Itinerary: days}.Clone().Itinerary
	for i := range out {
		for j, a := range out[i].Activities {
			if a.ID == activityID {
				out[i].Activities = append(out[i].Activities[:j], out[i].Activities[j+1:]...)
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("activity %q: %w", activityID, ErrNotFound)
}
