// Package api holds the JSON wire types of the TripMind REST API, shared by
// the reference backend's handlers and the HTTP client. They mirror
// openapi/openapi.yaml; calendar dates travel as openapi_types.Date
// ("2006-01-02").
package api

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripmind/internal/domain"
)

// Trip is the wire form of domain.Trip.
type Trip struct {
	Id             uuid.UUID           `json:"id"`
	Destination    string              `json:"destination"`
	StartDate      *openapi_types.Date `json:"start_date,omitempty"`
	EndDate        *openapi_types.Date `json:"end_date,omitempty"`
	DurationDays   *int                `json:"duration_days,omitempty"`
	TravelersCount int                 `json:"travelers_count"`
	Budget         *float64            `json:"budget,omitempty"`
	Status         string              `json:"status"`
	Metadata       domain.Metadata     `json:"metadata"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /api/trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CreateTripRequest is the body of POST /api/trips.
type CreateTripRequest struct {
	Destination    string              `json:"destination"`
	StartDate      *openapi_types.Date `json:"start_date,omitempty"`
	EndDate        *openapi_types.Date `json:"end_date,omitempty"`
	DurationDays   *int                `json:"duration_days,omitempty"`
	TravelersCount *int                `json:"travelers_count,omitempty"`
	Budget         *float64            `json:"budget,omitempty"`
	Status         *string             `json:"status,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Preferences    []string            `json:"preferences,omitempty"`
}

// UpdateTripRequest is the body of PUT /api/trips/{id}. Absent fields are left
// unchanged. Notes, checklist and expenses are merged into the trip metadata;
// an explicit empty list clears the collection.
type UpdateTripRequest struct {
	Destination    *string                 `json:"destination,omitempty"`
	StartDate      *openapi_types.Date     `json:"start_date,omitempty"`
	EndDate        *openapi_types.Date     `json:"end_date,omitempty"`
	DurationDays   *int                    `json:"duration_days,omitempty"`
	TravelersCount *int                    `json:"travelers_count,omitempty"`
	Budget         *float64                `json:"budget,omitempty"`
	Status         *string                 `json:"status,omitempty"`
	Notes          *string                 `json:"notes,omitempty"`
	Checklist      *[]domain.ChecklistItem `json:"checklist,omitempty"`
	Expenses       *[]domain.Expense       `json:"expenses,omitempty"`
}

// AddActivityRequest is the body of POST /api/trips/{id}/activities.
type AddActivityRequest struct {
	Day      int             `json:"day"`
	Activity domain.Activity `json:"activity"`
}

// GenerateRequest is the body of POST /api/trips/{id}/generate.
type GenerateRequest struct {
	Instruction string `json:"instruction,omitempty"`
}

// GenerationAck is the 202 body of POST /api/trips/{id}/generate.
type GenerationAck struct {
	TripId     uuid.UUID `json:"trip_id"`
	Accepted   bool      `json:"accepted"`
	TotalDays  int       `json:"total_days"`
	Message    string    `json:"message,omitempty"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// SuggestionsRequest is the body of POST /api/trips/{id}/suggestions/{category}.
type SuggestionsRequest struct {
	Preferences string `json:"preferences,omitempty"`
}

// SuggestionsResponse lists freshly generated candidates.
type SuggestionsResponse struct {
	Category domain.Category     `json:"category"`
	Items    []domain.Suggestion `json:"items"`
}

// CommitSuggestionRequest is the body of
// POST /api/trips/{id}/suggestions/{category}/commit.
type CommitSuggestionRequest struct {
	Suggestion domain.Suggestion `json:"suggestion"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorDetail is the machine-readable part of an error body.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is returned with every 4xx and 5xx status.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Error codes carried in ErrorDetail.Code.
const (
	CodeNotFound   = "not_found"
	CodeValidation = "validation_error"
	CodeConflict   = "conflict"
	CodeInternal   = "internal_error"
)

// ExportRow is one row of GET /api/trips/{id}/export. Empty activity fields
// are omitted.
type ExportRow struct {
	TripId      uuid.UUID           `json:"trip_id"`
	Destination string              `json:"destination"`
	Day         int                 `json:"day"`
	Date        *openapi_types.Date `json:"date,omitempty"`
	DayTitle    string              `json:"day_title"`
	Time        *string             `json:"time,omitempty"`
	Activity    *string             `json:"activity,omitempty"`
	Location    *string             `json:"location,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
	Cost        *float64            `json:"cost,omitempty"`
}
