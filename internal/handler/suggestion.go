package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
)

// RequestSuggestions handles POST /api/trips/{id}/suggestions/{category}.
// The body is optional.
func (s *Server) RequestSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	var body api.SuggestionsRequest
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !decodeBody(w, r, &body) {
			return
		}
	}

	items, err := s.trips.Suggest(r.Context(), id, category, body.Preferences)
	if err != nil {
		s.writeServiceError(w, r, err, "trip not found", "")
		return
	}
	if items == nil {
		items = []domain.Suggestion{}
	}
	writeJSON(w, http.StatusOK, api.SuggestionsResponse{Category: category, Items: items})
}

// CommitSuggestion handles POST /api/trips/{id}/suggestions/{category}/commit.
// The suggestion's own category must match the path.
func (s *Server) CommitSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	var body api.CommitSuggestionRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Suggestion.Category == "" {
		body.Suggestion.Category = category
	}
	if body.Suggestion.Category != category {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("suggestion category does not match path"))
		return
	}

	trip, err := s.trips.CommitSuggestion(r.Context(), id, body.Suggestion)
	if err != nil {
		s.writeServiceError(w, r, err, "trip not found", "suggestion already saved")
		return
	}
	writeJSON(w, http.StatusOK, api.FromTrip(trip))
}

func categoryParam(w http.ResponseWriter, r *http.Request) (domain.Category, bool) {
	c, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return "", false
	}
	return c, true
}
