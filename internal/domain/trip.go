// Package domain contains the core data types for the TripMind planner.
// This package has no dependencies on other internal packages and is imported
// by every layer (phase, optimistic, suggest, genjob, planner, repo, service).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the canonical entity every view renders from.
// Dates are calendar dates; only the year/month/day part is significant.
type Trip struct {
	ID             uuid.UUID  `json:"id"`
	Destination    string     `json:"destination"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	DurationDays   int        `json:"duration_days,omitempty"`
	TravelersCount int        `json:"travelers_count"`
	Budget         *float64   `json:"budget,omitempty"`
	Status         string     `json:"status"` // legacy free-text label, not the lifecycle phase
	Metadata       Metadata   `json:"metadata"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Metadata is the open-ended bag of sub-collections stored alongside a trip.
type Metadata struct {
	Itinerary   []ItineraryDay   `json:"itinerary,omitempty"`
	Checklist   []ChecklistItem  `json:"checklist,omitempty"`
	Expenses    []Expense        `json:"expenses,omitempty"`
	Flights     []Booking        `json:"flights,omitempty"`
	Hotels      []Booking        `json:"hotels,omitempty"`
	Transport   []Booking        `json:"transport,omitempty"`
	Activities  []Booking        `json:"activities,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Preferences []string         `json:"preferences,omitempty"`
	Generation  GenerationConfig `json:"generation_config"`
}

// GenerationConfig tracks how much of the itinerary the backend has produced.
// Partial is true while DaysGenerated < TotalDays.
type GenerationConfig struct {
	DaysGenerated int  `json:"days_generated"`
	TotalDays     int  `json:"total_days"`
	Partial       bool `json:"partial"`
}

// HasItinerary reports whether any itinerary day has arrived yet.
func (t Trip) HasItinerary() bool {
	return len(t.Metadata.Itinerary) > 0
}

// ExpectedDays returns the number of itinerary days a complete plan should have.
// DurationDays wins; otherwise the inclusive span between the dates is used.
func (t Trip) ExpectedDays() int {
	if t.DurationDays > 0 {
		return t.DurationDays
	}
	if t.StartDate != nil && t.EndDate != nil {
		s := time.Date(t.StartDate.Year(), t.StartDate.Month(), t.StartDate.Day(), 0, 0, 0, 0, time.UTC)
		e := time.Date(t.EndDate.Year(), t.EndDate.Month(), t.EndDate.Day(), 0, 0, 0, 0, time.UTC)
		if days := int(e.Sub(s).Hours()/24) + 1; days > 0 {
			return days
		}
	}
	return 0
}

// Clone returns a deep copy of t. Mutators receive clones so the previous
// value stays intact for rollback.
func (t Trip) Clone() Trip {
	c := t
	c.StartDate = cloneTime(t.StartDate)
	c.EndDate = cloneTime(t.EndDate)
	c.Budget = cloneFloat(t.Budget)
	c.Metadata = t.Metadata.Clone()
	return c
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Itinerary != nil {
		c.Itinerary = make([]ItineraryDay, len(m.Itinerary))
		for i, d := range m.Itinerary {
			c.Itinerary[i] = d.Clone()
		}
	}
	if m.Checklist != nil {
		c.Checklist = make([]ChecklistItem, len(m.Checklist))
		for i, item := range m.Checklist {
			item.CheckedAt = cloneTime(item.CheckedAt)
			c.Checklist[i] = item
		}
	}
	if m.Expenses != nil {
		c.Expenses = make([]Expense, len(m.Expenses))
		copy(c.Expenses, m.Expenses)
	}
	c.Flights = cloneBookings(m.Flights)
	c.Hotels = cloneBookings(m.Hotels)
	c.Transport = cloneBookings(m.Transport)
	c.Activities = cloneBookings(m.Activities)
	if m.Preferences != nil {
		c.Preferences = make([]string, len(m.Preferences))
		copy(c.Preferences, m.Preferences)
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// TripPatch carries a partial update. Nil fields are left unchanged.
// Notes, Checklist and Expenses are merged into Metadata rather than stored
// as top-level columns.
type TripPatch struct {
	Destination    *string
	StartDate      *time.Time
	EndDate        *time.Time
	DurationDays   *int
	Budget         *float64
	TravelersCount *int
	Status         *string
	Notes          *string
	Checklist      []ChecklistItem
	Expenses       []Expense
}

// IsEmpty reports whether the patch would change nothing.
func (p TripPatch) IsEmpty() bool {
	return p.Destination == nil && p.StartDate == nil && p.EndDate == nil &&
		p.DurationDays == nil && p.Budget == nil && p.TravelersCount == nil &&
		p.Status == nil && p.Notes == nil && p.Checklist == nil && p.Expenses == nil
}

// Apply returns a copy of t with the patch merged in.
func (p TripPatch) Apply(t Trip) Trip {
	out := t.Clone()
	if p.Destination != nil {
		out.Destination = *p.Destination
	}
	if p.StartDate != nil {
		out.StartDate = cloneTime(p.StartDate)
	}
	if p.EndDate != nil {
		out.EndDate = cloneTime(p.EndDate)
	}
	if p.DurationDays != nil {
		out.DurationDays = *p.DurationDays
	}
	if p.Budget != nil {
		out.Budget = cloneFloat(p.Budget)
	}
	if p.TravelersCount != nil {
		out.TravelersCount = *p.TravelersCount
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Notes != nil {
		out.Metadata.Notes = *p.Notes
	}
	if p.Checklist != nil {
		out.Metadata.Checklist = Metadata{Checklist: p.Checklist}.Clone().Checklist
	}
	if p.Expenses != nil {
		out.Metadata.Expenses = make([]Expense, len(p.Expenses))
		copy(out.Metadata.Expenses, p.Expenses)
	}
	return out
}
