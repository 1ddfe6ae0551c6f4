package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/tripmind/internal/api"
)

// AddActivity handles POST /api/trips/{id}/activities.
func (s *Server) AddActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body api.AddActivityRequest
	if !decodeBody(w, r, &body) {
		return
	}

	trip, err := s.trips.AddActivity(r.Context(), id, body.Day, body.Activity)
	if err != nil {
		s.writeServiceError(w, r, err, "trip not found", "")
		return
	}
	writeJSON(w, http.StatusCreated, api.FromTrip(trip))
}

// DeleteActivity handles DELETE /api/trips/{id}/activities/{activityID}.
// It answers with the updated trip so clients can reconcile in one round trip.
func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.DeleteActivity(r.Context(), id, chi.URLParam(r, "activityID"))
	if err != nil {
		s.writeServiceError(w, r, err, "trip or activity not found", "")
		return
	}
	writeJSON(w, http.StatusOK, api.FromTrip(trip))
}

// BeginGeneration handles POST /api/trips/{id}/generate.
// It answers 202 as soon as the run is accepted; the days arrive on the trip.
// The body is optional.
func (s *Server) BeginGeneration(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body api.GenerateRequest
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !decodeBody(w, r, &body) {
			return
		}
	}

	ack, err := s.trips.BeginGeneration(r.Context(), id, body.Instruction)
	if err != nil {
		s.writeServiceError(w, r, err, "trip not found", "itinerary generation already running")
		return
	}
	writeJSON(w, http.StatusAccepted, api.FromAck(ack))
}
