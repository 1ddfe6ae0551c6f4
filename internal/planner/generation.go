package planner

import (
	"context"
	"fmt"

	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/genjob"
)

// Progress describes the itinerary generation run of a session.
type Progress struct {
	State         genjob.State
	Attempts      int
	DaysGenerated int
	TotalDays     int
	Partial       bool
	Message       string
}

// GenerateItinerary starts filling the itinerary. Only one run per session
// may be in flight; a second call while generating fails with
// domain.ErrConflict. On success the fetched trip is adopted as canonical.
func (s *Session) GenerateItinerary(ctx context.Context, instruction string) (*genjob.Job, error) {
	s.mu.Lock()
	if s.job != nil && !s.job.State().Terminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("planner.Session.GenerateItinerary: %w: generation already in progress", domain.ErrConflict)
	}
	job := s.jobs.NewJob(s.tripID, genjob.KindItinerary)
	s.job = job
	s.progress = progressFrom(s.trip.Current(), genjob.StateGenerating, 0)
	s.mu.Unlock()

	if err := job.Run(ctx, instruction); err != nil {
		return nil, fmt.Errorf("planner.Session.GenerateItinerary: %w", err)
	}
	return job, nil
}

// CancelGeneration stops polling. The backend may still finish; a later
// Refresh picks the result up.
func (s *Session) CancelGeneration() {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job != nil {
		job.Cancel()
	}
}

// GenerationProgress reports days generated against the expected total.
func (s *Session) GenerationProgress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// itineraryComplete waits for the whole plan rather than the first day, so
// progress keeps updating while the backend fills the remaining days.
func itineraryComplete(t domain.Trip) bool {
	return t.HasItinerary() && !t.Metadata.Generation.Partial
}

func (s *Session) onPoll(_ genjob.Kind, attempt int, trip domain.Trip, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.progress.Attempts = attempt
		return
	}
	s.progress = progressFrom(trip, genjob.StateGenerating, attempt)
}

func (s *Session) onJobFinish(kind genjob.Kind, out genjob.Outcome) {
	s.metrics.RecordJob(string(kind), string(out.State), out.Attempts)
	if out.State == genjob.StateSucceeded {
		// Only the generated fields are taken; user edits still in flight
		// settle against their own server answers.
		days := out.Trip.Metadata.Clone().Itinerary
		gen := out.Trip.Metadata.Generation
		_ = s.trip.Merge(func(t domain.Trip) (domain.Trip, error) {
			t.Metadata.Itinerary = days
			t.Metadata.Generation = gen
			return t, nil
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if out.State == genjob.StateSucceeded {
		s.progress = progressFrom(out.Trip, out.State, out.Attempts)
	} else {
		s.progress.State = out.State
		s.progress.Attempts = out.Attempts
	}
	s.progress.Message = out.Message
}

func progressFrom(t domain.Trip, state genjob.State, attempts int) Progress {
	g := t.Metadata.Generation
	total := g.TotalDays
	if total == 0 {
		total = t.ExpectedDays()
	}
	days := g.DaysGenerated
	if days == 0 {
		days = len(t.Metadata.Itinerary)
	}
	return Progress{
		State:         state,
		Attempts:      attempts,
		DaysGenerated: days,
		TotalDays:     total,
		Partial:       g.Partial,
	}
}
