package domain

import "sort"

// ExportRow is a single row in an itinerary export.
// It is a flat, denormalized view: one row per activity, with trip and day
// fields repeated. Days without activities yield one row with empty activity
// fields so the day still shows up.
type ExportRow struct {
	// Trip fields, repeated on every row.
	TripID      string
	Destination string

	// Day fields.
	Day      int
	Date     string // "2006-01-02"; empty when the trip has no start date
	DayTitle string

	// Activity fields, zero when the day is empty.
	Time     string
	Activity string
	Location string
	Notes    string
	Cost     *float64
}

// ExportItinerary flattens the trip's itinerary into rows ordered by day and
// then by the activity order within each day.
func ExportItinerary(t Trip) []ExportRow {
	days := Metadata{Itinerary: t.Metadata.Itinerary}.Clone().Itinerary
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	rows := make([]ExportRow, 0, len(days))
	for _, d := range days {
		base := ExportRow{
			TripID:      t.ID.String(),
			Destination: t.Destination,
			Day:         d.Day,
			Date:        d.Date,
			DayTitle:    d.Title,
		}
		if len(d.Activities) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, a := range d.Activities {
			r := base
			r.Time = a.Time
			r.Activity = a.Title
			r.Location = a.Location
			r.Notes = a.Notes
			r.Cost = a.Cost
			rows = append(rows, r)
		}
	}
	return rows
}
