package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/client"
	"github.com/pkordes/tripmind/internal/domain"
)

// ---- helpers ---------------------------------------------------------------

func newClient(t *testing.T, r http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL, client.Options{RequestsPerMinute: 6000})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: api.ErrorDetail{Code: code, Message: msg}})
}

// ---- tests -----------------------------------------------------------------

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := client.New("not a url", client.Options{})
	assert.Error(t, err)
}

func TestClient_GetTrip(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Get("/api/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, id.String(), chi.URLParam(r, "id"))
		start := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
		writeJSON(w, http.StatusOK, api.FromTrip(domain.Trip{ID: id, Destination: "Lisbon", StartDate: &start}))
	})
	c := newClient(t, r)

	trip, err := c.GetTrip(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "Lisbon", trip.Destination)
	require.NotNil(t, trip.StartDate)
	assert.Equal(t, 20, trip.StartDate.Day())
}

func TestClient_UpdateTripSendsOnlyPatchedFields(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Put("/api/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Len(t, raw, 1)
		assert.Contains(t, raw, "checklist")

		var body api.UpdateTripRequest
		require.NoError(t, json.Unmarshal(mustMarshal(t, raw), &body))
		trip := body.ToPatch().Apply(domain.Trip{ID: id})
		trip.UpdatedAt = time.Now()
		writeJSON(w, http.StatusOK, api.FromTrip(trip))
	})
	c := newClient(t, r)

	items := []domain.ChecklistItem{{ID: "c1", Label: "Passport", Checked: true}}
	trip, err := c.UpdateTrip(context.Background(), id, domain.TripPatch{Checklist: items})

	require.NoError(t, err)
	assert.Equal(t, items[0].Label, trip.Metadata.Checklist[0].Label)
	assert.True(t, trip.Metadata.Checklist[0].Checked)
}

func TestClient_ErrorsMapToDomainSentinels(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusNotFound, api.CodeNotFound, domain.ErrNotFound},
		{http.StatusUnprocessableEntity, api.CodeValidation, domain.ErrValidation},
		{http.StatusConflict, api.CodeConflict, domain.ErrConflict},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/trips/{id}", func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, tc.status, tc.code, "nope")
			})
			c := newClient(t, r)

			_, err := c.GetTrip(context.Background(), uuid.New())

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var apiErr *client.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestClient_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Put("/api/trips/{id}", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})
	c := newClient(t, r)

	notes := "x"
	_, err := c.UpdateTrip(context.Background(), uuid.New(), domain.TripPatch{Notes: &notes})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "persistence must be at-most-once")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_BeginGeneration(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Post("/api/trips/{id}/generate", func(w http.ResponseWriter, r *http.Request) {
		var body api.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "more museums", body.Instruction)
		writeJSON(w, http.StatusAccepted, api.GenerationAck{TripId: id, Accepted: true, TotalDays: 5})
	})
	c := newClient(t, r)

	ack, err := c.BeginGeneration(context.Background(), id, "more museums")

	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Equal(t, 5, ack.TotalDays)
}

func TestClient_SuggestionsRoundTrip(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Post("/api/trips/{id}/suggestions/{category}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hotels", chi.URLParam(r, "category"))
		writeJSON(w, http.StatusOK, api.SuggestionsResponse{
			Category: domain.CategoryHotels,
			Items:    []domain.Suggestion{{ID: "h1", Category: domain.CategoryHotels, Title: "Harbour Inn"}},
		})
	})
	r.Post("/api/trips/{id}/suggestions/{category}/commit", func(w http.ResponseWriter, r *http.Request) {
		var body api.CommitSuggestionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		meta, err := domain.Metadata{}.WithBooking(domain.BookingFromSuggestion(body.Suggestion))
		require.NoError(t, err)
		writeJSON(w, http.StatusOK, api.FromTrip(domain.Trip{ID: id, Metadata: meta}))
	})
	c := newClient(t, r)
	ctx := context.Background()

	items, err := c.RequestSuggestions(ctx, id, domain.CategoryHotels, "near the water")
	require.NoError(t, err)
	require.Len(t, items, 1)

	trip, err := c.CommitSuggestion(ctx, id, items[0])
	require.NoError(t, err)
	assert.True(t, trip.Metadata.HasBookingFor(domain.CategoryHotels, "h1"))
}

func TestClient_ListTripsPassesPaging(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/trips", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, api.TripList{
			Data:       []api.Trip{api.FromTrip(domain.Trip{ID: uuid.New(), Destination: "Oslo"})},
			Pagination: api.Pagination{Page: 2, Limit: 10, Total: 11},
		})
	})
	c := newClient(t, r)

	trips, page, err := c.ListTrips(context.Background(), 2, 10)

	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "Oslo", trips[0].Destination)
	assert.Equal(t, 11, page.Total)
}

func TestClient_DeleteActivity(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Delete("/api/trips/{id}/activities/{activityID}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a1", chi.URLParam(r, "activityID"))
		writeJSON(w, http.StatusOK, api.FromTrip(domain.Trip{ID: id}))
	})
	c := newClient(t, r)

	trip, err := c.DeleteActivity(context.Background(), id, "a1")

	require.NoError(t, err)
	assert.Equal(t, id, trip.ID)
}

func TestClient_ExportItinerary(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Get("/api/trips/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		row := api.FromExportRow(domain.ExportRow{
			TripID: id.String(), Destination: "Lisbon", Day: 1, Date: "2026-06-01", DayTitle: "Arrival", Activity: "Tram 28",
		})
		writeJSON(w, http.StatusOK, []api.ExportRow{row})
	})
	c := newClient(t, r)

	rows, err := c.ExportItinerary(context.Background(), id)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].TripId)
	require.NotNil(t, rows[0].Activity)
	assert.Equal(t, "Tram 28", *rows[0].Activity)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
