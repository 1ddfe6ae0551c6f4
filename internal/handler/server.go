// Package handler implements the HTTP handlers for the TripMind reference API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, itinerary.go, suggestion.go, export.go) but all
// share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tripmind/internal/domain"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddActivity(ctx context.Context, id uuid.UUID, day int, a domain.Activity) (domain.Trip, error)
	DeleteActivity(ctx context.Context, id uuid.UUID, activityID string) (domain.Trip, error)
	BeginGeneration(ctx context.Context, id uuid.UUID, instruction string) (domain.GenerationAck, error)
	Suggest(ctx context.Context, id uuid.UUID, c domain.Category, preferences string) ([]domain.Suggestion, error)
	CommitSuggestion(ctx context.Context, id uuid.UUID, s domain.Suggestion) (domain.Trip, error)
}

// ExportServicer defines the export operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context, tripID uuid.UUID) ([]domain.ExportRow, error)
}

// Server serves every API endpoint.
// Wire it in main.go via Server.Routes on a chi router.
type Server struct {
	trips  TripServicer
	export ExportServicer
	logger *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(trips TripServicer, export ExportServicer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{trips: trips, export: export, logger: logger}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil)
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Post("/", s.CreateTrip)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Post("/activities", s.AddActivity)
			r.Delete("/activities/{activityID}", s.DeleteActivity)
			r.Post("/generate", s.BeginGeneration)
			r.Get("/export", s.GetExport)

			r.Post("/suggestions/{category}", s.RequestSuggestions)
			r.Post("/suggestions/{category}/commit", s.CommitSuggestion)
		})
	})
}

// Handler returns a chi router with every endpoint registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}
