package service

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pkordes/tripmind/internal/domain"
)

// Generator produces itinerary days and suggestion candidates for a trip.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Day returns the content for day n (1-indexed) of trip.
	Day(trip domain.Trip, n int, instruction string) domain.ItineraryDay

	// Suggestions returns candidates for one category.
	Suggestions(trip domain.Trip, c domain.Category, preferences string) []domain.Suggestion
}

// TemplateGenerator fills itineraries and suggestions from fixed templates.
// Output depends only on its inputs, so ids are stable across calls.
type TemplateGenerator struct{}

var _ Generator = TemplateGenerator{}

var dayTemplates = []struct {
	title string
	slots [][2]string // time, title
}{
	{"Arrival and old town", [][2]string{{"10:00", "Check in"}, {"14:00", "Walking tour of the old town"}, {"19:30", "Welcome dinner"}}},
	{"Museums and markets", [][2]string{{"09:30", "Main museum"}, {"13:00", "Lunch at the central market"}, {"16:00", "Gallery district"}}},
	{"Day trip", [][2]string{{"08:00", "Train to the coast"}, {"12:30", "Seafood lunch"}, {"17:00", "Sunset viewpoint"}}},
	{"Neighbourhoods", [][2]string{{"10:00", "Coffee crawl"}, {"14:00", "Street art walk"}, {"20:00", "Live music"}}},
	{"Slow day", [][2]string{{"11:00", "Brunch"}, {"15:00", "Park and gardens"}, {"19:00", "Cooking class"}}},
}

// Day builds day n from the rotating templates. The date is filled in when
// the trip has a start date.
func (TemplateGenerator) Day(trip domain.Trip, n int, instruction string) domain.ItineraryDay {
	tpl := dayTemplates[(n-1)%len(dayTemplates)]
	if n == trip.ExpectedDays() && n > 1 {
		tpl.title = "Departure"
		tpl.slots = [][2]string{{"09:00", "Last breakfast"}, {"11:00", "Check out"}}
	}

	day := domain.ItineraryDay{
		Day:   n,
		Title: fmt.Sprintf("%s in %s", tpl.title, trip.Destination),
	}
	if trip.StartDate != nil {
		day.Date = trip.StartDate.AddDate(0, 0, n-1).Format("2006-01-02")
	}
	for i, slot := range tpl.slots {
		a := domain.Activity{
			ID:       fmt.Sprintf("gen-%d-%d", n, i+1),
			Time:     slot[0],
			Title:    slot[1],
			Location: trip.Destination,
		}
		if i == 0 && strings.TrimSpace(instruction) != "" {
			a.Notes = strings.TrimSpace(instruction)
		}
		day.Activities = append(day.Activities, a)
	}
	return day
}

var suggestionTemplates = map[domain.Category][]struct {
	title, provider string
	price           float64
}{
	domain.CategoryFlights: {
		{"Morning direct flight", "SkyLine", 420},
		{"Evening flight, one stop", "BudgetAir", 265},
		{"Flexible fare, direct", "SkyLine", 610},
	},
	domain.CategoryHotels: {
		{"Boutique hotel near the centre", "StayWell", 180},
		{"Harbour view apartment", "HomeAway", 140},
		{"Business hotel by the station", "CityRest", 120},
	},
	domain.CategoryTransport: {
		{"7-day transit pass", "Metro", 35},
		{"Compact rental car", "DriveNow", 210},
		{"Airport transfer", "ShuttleCo", 45},
	},
	domain.CategoryActivities: {
		{"Guided food tour", "LocalTaste", 75},
		{"Museum pass", "CityPass", 55},
		{"Sunset boat trip", "BlueWave", 90},
	},
}

// Suggestions returns the category's templates priced for the travellers.
// The same trip, category and preferences always yield the same ids.
func (TemplateGenerator) Suggestions(trip domain.Trip, c domain.Category, preferences string) []domain.Suggestion {
	travelers := trip.TravelersCount
	if travelers < 1 {
		travelers = 1
	}
	seed := stableID(trip.ID.String(), string(c), preferences)

	tpls := suggestionTemplates[c]
	out := make([]domain.Suggestion, 0, len(tpls))
	for i, tpl := range tpls {
		price := tpl.price * float64(travelers)
		s := domain.Suggestion{
			ID:          fmt.Sprintf("%s-%s-%d", c, seed, i+1),
			Category:    c,
			Title:       tpl.title,
			Description: fmt.Sprintf("%s in %s", tpl.title, trip.Destination),
			Provider:    tpl.provider,
			Price:       &price,
			Currency:    "USD",
		}
		if p := strings.TrimSpace(preferences); p != "" {
			s.Details = map[string]string{"preferences": p}
		}
		out = append(out, s)
	}
	return out
}

func stableID(parts ...string) string {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%08x", h.Sum32())
}
