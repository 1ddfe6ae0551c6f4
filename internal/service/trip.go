// Package service contains the business logic for the TripMind backend.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here. Services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/metrics"
	"github.com/pkordes/tripmind/internal/repo"
)

// DefaultStepDelay is the pause between generated itinerary days.
const DefaultStepDelay = 2 * time.Second

// Options configures a TripService. Zero values select the defaults.
type Options struct {
	Generator Generator
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	// StepDelay is the pause before each generated day. Negative means none.
	StepDelay time.Duration
}

// TripService implements business logic for Trip operations.
type TripService struct {
	repo      repo.TripRepo
	gen       Generator
	metrics   *metrics.Collector
	logger    *slog.Logger
	stepDelay time.Duration

	// ctx outlives individual requests; background generation runs on it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
	running map[uuid.UUID]bool
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(r repo.TripRepo, opts Options) *TripService {
	if opts.Generator == nil {
		opts.Generator = TemplateGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch {
	case opts.StepDelay == 0:
		opts.StepDelay = DefaultStepDelay
	case opts.StepDelay < 0:
		opts.StepDelay = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TripService{
		repo:      r,
		gen:       opts.Generator,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		stepDelay: opts.StepDelay,
		ctx:       ctx,
		cancel:    cancel,
		locks:     make(map[uuid.UUID]*sync.Mutex),
		running:   make(map[uuid.UUID]bool),
	}
}

// Close stops background generation and waits for it to exit.
func (s *TripService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every background generation has finished.
func (s *TripService) Wait() {
	s.wg.Wait()
}

// ---- trips -----------------------------------------------------------------

// Create validates and persists a new trip.
// Returns domain.ErrValidation if input violates business rules.
func (s *TripService) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	trip.Destination = strings.TrimSpace(trip.Destination)
	if trip.TravelersCount == 0 {
		trip.TravelersCount = 1
	}
	if trip.Status == "" {
		trip.Status = "planning"
	}
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}
	result, err := s.repo.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single trip by ID.
// Returns domain.ErrNotFound if no trip with that ID exists.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of trips and the total count.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.ListPaged: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, total, nil
}

// Update applies a partial update. Scalar fields go to their columns; notes,
// checklist and expenses are merged into metadata without touching the
// itinerary or bookings.
func (s *TripService) Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	unlock := s.lockTrip(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if patch.IsEmpty() {
		return current, nil
	}

	next := patch.Apply(current)
	next.Destination = strings.TrimSpace(next.Destination)
	if err := validateTrip(next); err != nil {
		return domain.Trip{}, err
	}
	for _, e := range patch.Expenses {
		if err := domain.ValidateExpense(e); err != nil {
			return domain.Trip{}, err
		}
	}

	result := current
	if patchesColumns(patch) {
		if result, err = s.repo.Update(ctx, next); err != nil {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
		}
	}
	if fields := metadataFields(patch); len(fields) > 0 {
		if result, err = s.repo.MergeMetadata(ctx, id, fields); err != nil {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
		}
	}
	return result, nil
}

// Delete removes a trip by ID.
// Returns domain.ErrNotFound if no trip with that ID exists.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// ---- itinerary activities --------------------------------------------------

// AddActivity appends an activity to the given itinerary day, creating the day
// when needed. A missing activity id is generated.
func (s *TripService) AddActivity(ctx context.Context, id uuid.UUID, day int, a domain.Activity) (domain.Trip, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return s.editItinerary(ctx, id, "service.TripService.AddActivity", func(days []domain.ItineraryDay) ([]domain.ItineraryDay, error) {
		return domain.AddActivity(days, day, a)
	})
}

// DeleteActivity removes an activity from the itinerary.
// Returns domain.ErrNotFound if the trip or the activity does not exist.
func (s *TripService) DeleteActivity(ctx context.Context, id uuid.UUID, activityID string) (domain.Trip, error) {
	return s.editItinerary(ctx, id, "service.TripService.DeleteActivity", func(days []domain.ItineraryDay) ([]domain.ItineraryDay, error) {
		return domain.RemoveActivity(days, activityID)
	})
}

func (s *TripService) editItinerary(
	ctx context.Context,
	id uuid.UUID,
	op string,
	edit func([]domain.ItineraryDay) ([]domain.ItineraryDay, error),
) (domain.Trip, error) {
	unlock := s.lockTrip(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("%s: %w", op, err)
	}
	days, err := edit(current.Metadata.Itinerary)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.repo.MergeMetadata(ctx, id, map[string]any{"itinerary": days})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ---- generation ------------------------------------------------------------

// BeginGeneration clears the itinerary and starts filling it one day at a
// time in the background. It returns as soon as the run is accepted.
// Returns domain.ErrConflict while a run for the same trip is in progress and
// domain.ErrValidation when the trip has neither a duration nor dates.
func (s *TripService) BeginGeneration(ctx context.Context, id uuid.UUID, instruction string) (domain.GenerationAck, error) {
	trip, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.GenerationAck{}, fmt.Errorf("service.TripService.BeginGeneration: %w", err)
	}
	total := trip.ExpectedDays()
	if total < 1 {
		return domain.GenerationAck{}, fmt.Errorf("%w: trip needs a duration or start and end dates", domain.ErrValidation)
	}

	s.mu.Lock()
	if s.running[id] {
		s.mu.Unlock()
		return domain.GenerationAck{}, fmt.Errorf("service.TripService.BeginGeneration: generation already running: %w", domain.ErrConflict)
	}
	s.running[id] = true
	s.mu.Unlock()

	if _, err := s.repo.MergeMetadata(ctx, id, map[string]any{
		"itinerary":         []domain.ItineraryDay{},
		"generation_config": domain.GenerationConfig{TotalDays: total, Partial: true},
	}); err != nil {
		s.finishRun(id)
		return domain.GenerationAck{}, fmt.Errorf("service.TripService.BeginGeneration: %w", err)
	}

	s.metrics.GenerationStarted()
	s.wg.Add(1)
	go s.generate(trip, total, instruction)

	s.logger.Info("itinerary generation started", "trip_id", id, "total_days", total)
	return domain.GenerationAck{
		TripID:     id,
		Accepted:   true,
		TotalDays:  total,
		AcceptedAt: time.Now().UTC(),
	}, nil
}

// generate writes one day per step. Each write re-reads the trip under the
// trip lock so concurrent activity edits are kept.
func (s *TripService) generate(trip domain.Trip, total int, instruction string) {
	defer s.wg.Done()
	defer s.metrics.GenerationFinished()
	defer s.finishRun(trip.ID)

	for n := 1; n <= total; n++ {
		if !s.sleep() {
			s.logger.Info("itinerary generation stopped", "trip_id", trip.ID, "days_generated", n-1)
			return
		}
		if err := s.writeDay(trip, n, total, instruction); err != nil {
			s.logger.Error("itinerary generation failed", "trip_id", trip.ID, "day", n, "error", err)
			return
		}
		s.metrics.AddGeneratedDays(1)
	}
	s.logger.Info("itinerary generation finished", "trip_id", trip.ID, "days", total)
}

func (s *TripService) writeDay(trip domain.Trip, n, total int, instruction string) error {
	unlock := s.lockTrip(trip.ID)
	defer unlock()

	current, err := s.repo.GetByID(s.ctx, trip.ID)
	if err != nil {
		return err
	}
	days := mergeDay(current.Metadata.Itinerary, s.gen.Day(current, n, instruction))
	_, err = s.repo.MergeMetadata(s.ctx, trip.ID, map[string]any{
		"itinerary":         days,
		"generation_config": domain.GenerationConfig{DaysGenerated: n, TotalDays: total, Partial: n < total},
	})
	return err
}

// sleep waits one step. It reports false when the service is closing.
func (s *TripService) sleep() bool {
	if s.stepDelay <= 0 {
		return s.ctx.Err() == nil
	}
	t := time.NewTimer(s.stepDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *TripService) finishRun(id uuid.UUID) {
	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()
}

// mergeDay inserts gen in day order. Activities a user already added to that
// day are kept after the generated ones.
func mergeDay(days []domain.ItineraryDay, gen domain.ItineraryDay) []domain.ItineraryDay {
	out := domain.Metadata{Itinerary: days}.Clone().Itinerary
	for i := range out {
		if out[i].Day == gen.Day {
			gen.Activities = append(gen.Activities, out[i].Activities...)
			out[i] = gen
			return out
		}
	}
	pos := len(out)
	for i := range out {
		if out[i].Day > gen.Day {
			pos = i
			break
		}
	}
	out = append(out, domain.ItineraryDay{})
	copy(out[pos+1:], out[pos:])
	out[pos] = gen
	return out
}

// ---- suggestions -----------------------------------------------------------

// Suggest returns fresh candidates for a category.
func (s *TripService) Suggest(ctx context.Context, id uuid.UUID, c domain.Category, preferences string) ([]domain.Suggestion, error) {
	if _, err := domain.ParseCategory(string(c)); err != nil {
		return nil, err
	}
	trip, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Suggest: %w", err)
	}
	return s.gen.Suggestions(trip, c, preferences), nil
}

// CommitSuggestion stores a candidate as a booking on the trip.
// Returns domain.ErrConflict if a booking for the same suggestion exists.
func (s *TripService) CommitSuggestion(ctx context.Context, id uuid.UUID, sug domain.Suggestion) (domain.Trip, error) {
	if _, err := domain.ParseCategory(string(sug.Category)); err != nil {
		return domain.Trip{}, err
	}
	if strings.TrimSpace(sug.ID) == "" || strings.TrimSpace(sug.Title) == "" {
		return domain.Trip{}, fmt.Errorf("%w: suggestion id and title are required", domain.ErrValidation)
	}

	unlock := s.lockTrip(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.CommitSuggestion: %w", err)
	}
	if current.Metadata.HasBookingFor(sug.Category, sug.ID) {
		return domain.Trip{}, fmt.Errorf("service.TripService.CommitSuggestion: suggestion %q already saved: %w", sug.ID, domain.ErrConflict)
	}
	meta, err := current.Metadata.WithBooking(domain.BookingFromSuggestion(sug))
	if err != nil {
		return domain.Trip{}, err
	}
	result, err := s.repo.MergeMetadata(ctx, id, map[string]any{
		string(sug.Category): meta.Bookings(sug.Category),
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.CommitSuggestion: %w", err)
	}
	return result, nil
}

// ---- helpers ---------------------------------------------------------------

// lockTrip serialises read-modify-write cycles on one trip's metadata.
func (s *TripService) lockTrip(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// validateTrip enforces business rules common to both Create and Update.
//   - Destination must be non-empty.
//   - EndDate, if set, must not be before StartDate.
//   - DurationDays, Budget and TravelersCount must not be negative.
func validateTrip(t domain.Trip) error {
	if t.Destination == "" {
		return fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
	}
	if t.DurationDays < 0 {
		return fmt.Errorf("%w: duration_days must not be negative", domain.ErrValidation)
	}
	if t.Budget != nil && *t.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", domain.ErrValidation)
	}
	if t.TravelersCount < 1 {
		return fmt.Errorf("%w: travelers_count must be at least 1", domain.ErrValidation)
	}
	return nil
}

func patchesColumns(p domain.TripPatch) bool {
	return p.Destination != nil || p.StartDate != nil || p.EndDate != nil ||
		p.DurationDays != nil || p.Budget != nil || p.TravelersCount != nil || p.Status != nil
}

func metadataFields(p domain.TripPatch) map[string]any {
	fields := map[string]any{}
	if p.Notes != nil {
		fields["notes"] = *p.Notes
	}
	if p.Checklist != nil {
		fields["checklist"] = p.Checklist
	}
	if p.Expenses != nil {
		fields["expenses"] = p.Expenses
	}
	return fields
}
