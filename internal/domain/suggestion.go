package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Category groups suggestions and committed bookings.
type Category string

const (
	CategoryFlights    Category = "flights"
	CategoryHotels     Category = "hotels"
	CategoryTransport  Category = "transport"
	CategoryActivities Category = "activities"
)

// Categories lists every supported category in display order.
var Categories = []Category{CategoryFlights, CategoryHotels, CategoryTransport, CategoryActivities}

// ParseCategory validates s as a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// Suggestion is a generated candidate that has not been saved to the trip.
type Suggestion struct {
	ID          string            `json:"id"`
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Price       *float64          `json:"price,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// Booking is a suggestion that has been committed into trip data.
// SuggestionID links it back to the candidate it came from.
type Booking struct {
	ID           string            `json:"id"`
	Category     Category          `json:"category"`
	Title        string            `json:"title"`
	Provider     string            `json:"provider,omitempty"`
	Price        *float64          `json:"price,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	SuggestionID string            `json:"suggestion_id,omitempty"`
}

// BookingFromSuggestion converts a candidate into a committed booking with a
// fresh id.
func BookingFromSuggestion(s Suggestion) Booking {
	return Booking{
		ID:           uuid.NewString(),
		Category:     s.Category,
		Title:        s.Title,
		Provider:     s.Provider,
		Price:        cloneFloat(s.Price),
		Currency:     s.Currency,
		Details:      cloneDetails(s.Details),
		SuggestionID: s.ID,
	}
}

// Bookings returns the committed bookings for a category.
func (m Metadata) Bookings(c Category) []Booking {
	switch c {
	case CategoryFlights:
		return m.Flights
	case CategoryHotels:
		return m.Hotels
	case CategoryTransport:
		return m.Transport
	case CategoryActivities:
		return m.Activities
	}
	return nil
}

// WithBooking returns a copy of m with b appended to its category.
func (m Metadata) WithBooking(b Booking) (Metadata, error) {
	out := m.Clone()
	switch b.Category {
	case CategoryFlights:
		out.Flights = append(out.Flights, b)
	case CategoryHotels:
		out.Hotels = append(out.Hotels, b)
	case CategoryTransport:
		out.Transport = append(out.Transport, b)
	case CategoryActivities:
		out.Activities = append(out.Activities, b)
	default:
		return Metadata{}, fmt.Errorf("%w: unknown category %q", ErrValidation, b.Category)
	}
	return out, nil
}

// HasBookingFor reports whether a booking already references suggestionID.
func (m Metadata) HasBookingFor(c Category, suggestionID string) bool {
	for _, b := range m.Bookings(c) {
		if b.SuggestionID == suggestionID {
			return true
		}
	}
	return false
}

func cloneBookings(in []Booking) []Booking {
	if in == nil {
		return nil
	}
	out := make([]Booking, len(in))
	for i, b := range in {
		b.Price = cloneFloat(b.Price)
		b.Details = cloneDetails(b.Details)
		out[i] = b
	}
	return out
}

func cloneDetails(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
