package planner

import (
	"context"
	"fmt"

	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/optimistic"
	"github.com/pkordes/tripmind/internal/suggest"
)

// Suggestions returns the candidates for a category. The session cache is
// consulted first unless refresh is set; a miss asks the backend and caches
// the answer. Concurrent misses for the same category share one request.
func (s *Session) Suggestions(ctx context.Context, category domain.Category, preferences string, refresh bool) (suggest.Set, error) {
	entity := s.tripID.String()
	if !refresh {
		if set, ok := s.cache.Get(ctx, entity, category); ok {
			s.metrics.RecordCacheLookup(string(category), true)
			return set, nil
		}
	}
	s.metrics.RecordCacheLookup(string(category), false)

	v, err, _ := s.fetches.Do(suggest.Key(entity, category), func() (any, error) {
		items, err := s.backend.RequestSuggestions(ctx, s.tripID, category, preferences)
		if err != nil {
			return nil, err
		}
		return s.cache.Put(ctx, entity, category, items, preferences), nil
	})
	if err != nil {
		return suggest.Set{}, fmt.Errorf("planner.Session.Suggestions: %w", err)
	}
	return v.(suggest.Set), nil
}

// SaveSuggestion commits a cached candidate into the trip's bookings as an
// optimistic edit. The candidate is marked committed in the cache only once
// the backend has accepted it. Saving the same candidate twice fails with
// domain.ErrConflict.
func (s *Session) SaveSuggestion(ctx context.Context, category domain.Category, itemID string) (CommitResult, error) {
	entity := s.tripID.String()
	set, ok := s.cache.Get(ctx, entity, category)
	if !ok {
		return nil, fmt.Errorf("planner.Session.SaveSuggestion: no %s suggestions loaded: %w", category, domain.ErrNotFound)
	}
	item, ok := set.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("planner.Session.SaveSuggestion: suggestion %q: %w", itemID, domain.ErrNotFound)
	}
	if set.IsCommitted(itemID) {
		return nil, fmt.Errorf("planner.Session.SaveSuggestion: %w: suggestion %q already saved", domain.ErrConflict, itemID)
	}

	return s.commit(ctx, string(category),
		func(t domain.Trip) (domain.Trip, error) {
			if t.Metadata.HasBookingFor(category, itemID) {
				return t, fmt.Errorf("planner.Session.SaveSuggestion: %w: suggestion %q already saved", domain.ErrConflict, itemID)
			}
			meta, err := t.Metadata.WithBooking(domain.BookingFromSuggestion(item))
			if err != nil {
				return t, fmt.Errorf("planner.Session.SaveSuggestion: %w", err)
			}
			t.Metadata = meta
			return t, nil
		},
		func(ctx context.Context, _ domain.Trip) (domain.Trip, error) {
			return s.backend.CommitSuggestion(ctx, s.tripID, item)
		},
		func(st optimistic.State[domain.Trip]) {
			// A superseded result without an error was still persisted.
			if st.Err == nil && (st.Kind == optimistic.Settled || st.Kind == optimistic.Superseded) {
				s.cache.MarkCommitted(s.ctx, entity, category, itemID)
			}
		},
	)
}
