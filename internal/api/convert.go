package api

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripmind/internal/domain"
)

// FromTrip converts a domain.Trip into its wire form.
func FromTrip(t domain.Trip) Trip {
	out := Trip{
		Id:             t.ID,
		Destination:    t.Destination,
		StartDate:      toDate(t.StartDate),
		EndDate:        toDate(t.EndDate),
		TravelersCount: t.TravelersCount,
		Budget:         t.Budget,
		Status:         t.Status,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.DurationDays > 0 {
		d := t.DurationDays
		out.DurationDays = &d
	}
	return out
}

// ToDomain converts a wire Trip back into a domain.Trip.
func (t Trip) ToDomain() domain.Trip {
	out := domain.Trip{
		ID:             t.Id,
		Destination:    t.Destination,
		StartDate:      fromDate(t.StartDate),
		EndDate:        fromDate(t.EndDate),
		TravelersCount: t.TravelersCount,
		Budget:         t.Budget,
		Status:         t.Status,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.DurationDays != nil {
		out.DurationDays = *t.DurationDays
	}
	return out
}

// ToDomain builds the trip to create. Server-owned fields stay zero.
func (r CreateTripRequest) ToDomain() domain.Trip {
	t := domain.Trip{
		Destination:    r.Destination,
		StartDate:      fromDate(r.StartDate),
		EndDate:        fromDate(r.EndDate),
		Budget:         r.Budget,
		Status:         "planning",
		TravelersCount: 1,
	}
	if r.DurationDays != nil {
		t.DurationDays = *r.DurationDays
	}
	if r.TravelersCount != nil {
		t.TravelersCount = *r.TravelersCount
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.Notes != nil {
		t.Metadata.Notes = *r.Notes
	}
	t.Metadata.Preferences = r.Preferences
	return t
}

// ToPatch converts the request into a domain.TripPatch.
func (r UpdateTripRequest) ToPatch() domain.TripPatch {
	p := domain.TripPatch{
		Destination:    r.Destination,
		StartDate:      fromDate(r.StartDate),
		EndDate:        fromDate(r.EndDate),
		DurationDays:   r.DurationDays,
		Budget:         r.Budget,
		TravelersCount: r.TravelersCount,
		Status:         r.Status,
		Notes:          r.Notes,
	}
	if r.Checklist != nil {
		p.Checklist = append([]domain.ChecklistItem{}, *r.Checklist...)
	}
	if r.Expenses != nil {
		p.Expenses = append([]domain.Expense{}, *r.Expenses...)
	}
	return p
}

// FromPatch converts a domain.TripPatch into a request body. A non-nil empty
// slice in the patch is sent as an explicit empty list.
func FromPatch(p domain.TripPatch) UpdateTripRequest {
	r := UpdateTripRequest{
		Destination:    p.Destination,
		StartDate:      toDate(p.StartDate),
		EndDate:        toDate(p.EndDate),
		DurationDays:   p.DurationDays,
		Budget:         p.Budget,
		TravelersCount: p.TravelersCount,
		Status:         p.Status,
		Notes:          p.Notes,
	}
	if p.Checklist != nil {
		items := p.Checklist
		r.Checklist = &items
	}
	if p.Expenses != nil {
		items := p.Expenses
		r.Expenses = &items
	}
	return r
}

// FromAck converts a domain.GenerationAck into its wire form.
func FromAck(a domain.GenerationAck) GenerationAck {
	return GenerationAck{
		TripId:     a.TripID,
		Accepted:   a.Accepted,
		TotalDays:  a.TotalDays,
		Message:    a.Message,
		AcceptedAt: a.AcceptedAt,
	}
}

// ToDomain converts the wire ack back into a domain.GenerationAck.
func (a GenerationAck) ToDomain() domain.GenerationAck {
	return domain.GenerationAck{
		TripID:     a.TripId,
		Accepted:   a.Accepted,
		TotalDays:  a.TotalDays,
		Message:    a.Message,
		AcceptedAt: a.AcceptedAt,
	}
}

// FromExportRow converts a domain.ExportRow into its wire form. Rows come
// from the service, so a malformed date or trip id is dropped to zero.
func FromExportRow(r domain.ExportRow) ExportRow {
	id, _ := uuid.Parse(r.TripID)
	out := ExportRow{
		TripId:      id,
		Destination: r.Destination,
		Day:         r.Day,
		DayTitle:    r.DayTitle,
		Time:        optional(r.Time),
		Activity:    optional(r.Activity),
		Location:    optional(r.Location),
		Notes:       optional(r.Notes),
		Cost:        r.Cost,
	}
	if d, err := time.Parse("2006-01-02", r.Date); err == nil {
		out.Date = &openapi_types.Date{Time: d}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}
