// Package planner is the trip session facade. A Session owns the canonical
// copy of one trip and routes every user action through the right component:
// field edits through the optimistic store, notes through the debounced
// store, itinerary generation through the job controller and suggestion
// browsing through the session cache.
//
// The trip is only ever written by the optimistic store. Suggestions live in
// the cache until the user saves one, at which point it becomes an ordinary
// optimistic edit.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/tripmind/internal/clock"
	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/genjob"
	"github.com/pkordes/tripmind/internal/metrics"
	"github.com/pkordes/tripmind/internal/optimistic"
	"github.com/pkordes/tripmind/internal/phase"
	"github.com/pkordes/tripmind/internal/suggest"
)

// Backend is everything a Session needs from the persistence API.
// *client.Client satisfies it.
type Backend interface {
	GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	UpdateTrip(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	AddActivity(ctx context.Context, id uuid.UUID, day int, a domain.Activity) (domain.Trip, error)
	DeleteActivity(ctx context.Context, id uuid.UUID, activityID string) (domain.Trip, error)
	BeginGeneration(ctx context.Context, id uuid.UUID, instruction string) (domain.GenerationAck, error)
	RequestSuggestions(ctx context.Context, id uuid.UUID, category domain.Category, preferences string) ([]domain.Suggestion, error)
	CommitSuggestion(ctx context.Context, id uuid.UUID, s domain.Suggestion) (domain.Trip, error)
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Collector
	// SessionStore backs the suggestion cache. Defaults to a MemoryStore.
	SessionStore     suggest.KeyValueStore
	NotesQuietPeriod time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
}

// CommitResult is the state stream of one optimistic edit.
type CommitResult = <-chan optimistic.State[domain.Trip]

// Session is one open trip. It is safe for concurrent use.
type Session struct {
	backend Backend
	tripID  uuid.UUID
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc

	trip    *optimistic.Store[domain.Trip]
	notes   *optimistic.Debounced[domain.Trip]
	cache   *suggest.Cache
	jobs    *genjob.Controller
	fetches singleflight.Group

	mu       sync.Mutex
	job      *genjob.Job
	progress Progress
}

// Open fetches the trip once and wires a Session around it.
func Open(ctx context.Context, backend Backend, tripID uuid.UUID, opts Options) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionStore == nil {
		opts.SessionStore = suggest.NewMemoryStore(suggest.DefaultMaxEntries, 0)
	}

	trip, err := backend.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("planner.Open: %w", err)
	}

	logger := opts.Logger.With("trip_id", tripID)
	sessCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend: backend,
		tripID:  tripID,
		clock:   opts.Clock,
		logger:  logger,
		metrics: opts.Metrics,
		ctx:     sessCtx,
		cancel:  cancel,
		cache:   suggest.NewCache(opts.SessionStore, logger),
	}
	s.trip = optimistic.New(trip,
		optimistic.WithClone(domain.Trip.Clone),
		optimistic.WithLogger[domain.Trip](logger),
	)

	quiet := opts.NotesQuietPeriod
	if quiet <= 0 {
		quiet = optimistic.DefaultQuietPeriod
	}
	s.notes = optimistic.NewDebounced(sessCtx, s.trip, s.persistNotes,
		optimistic.WithQuietPeriod[domain.Trip](quiet),
		optimistic.WithClock[domain.Trip](opts.Clock),
		optimistic.OnSettle(func(st optimistic.State[domain.Trip]) {
			s.metrics.RecordCommit("notes", string(st.Kind))
		}),
	)

	s.jobs = genjob.New(backend, backend, genjob.Config{
		Interval:    opts.PollInterval,
		MaxAttempts: opts.PollMaxAttempts,
		Ready:       itineraryComplete,
		OnPoll:      s.onPoll,
		OnFinish:    s.onJobFinish,
		Clock:       opts.Clock,
		Logger:      opts.Logger, // jobs add trip_id themselves
	})
	s.progress = progressFrom(trip, genjob.StateIdle, 0)
	return s, nil
}

// Close flushes pending notes, cancels a running generation and releases the
// session. The Session must not be used afterwards.
func (s *Session) Close() {
	if st, ok := s.notes.Flush(); ok && st.Kind == optimistic.RolledBack {
		s.logger.Warn("pending notes were not saved", "error", st.Err)
	}
	s.notes.Stop()
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job != nil {
		job.Cancel()
	}
	s.cancel()
}

// ---- reads -----------------------------------------------------------------

// TripID returns the id of the open trip.
func (s *Session) TripID() uuid.UUID { return s.tripID }

// Trip returns a copy of the canonical trip, including optimistic edits.
func (s *Session) Trip() domain.Trip { return s.trip.Current() }

// SaveStatus returns the save indicator of the latest edit.
func (s *Session) SaveStatus() optimistic.Status { return s.trip.Status() }

// Subscribe registers fn for every change of the canonical trip.
func (s *Session) Subscribe(fn func(optimistic.State[domain.Trip])) { s.trip.Subscribe(fn) }

// Phase classifies the trip against today's date.
func (s *Session) Phase() phase.Phase {
	t := s.trip.Current()
	return phase.Classify(t.StartDate, t.EndDate, s.clock.Now())
}

// Panels returns the panels enabled in the current phase.
func (s *Session) Panels() []phase.Panel { return phase.Panels(s.Phase()) }

// DaysUntilStart returns the countdown shown before the trip, or -1.
func (s *Session) DaysUntilStart() int {
	t := s.trip.Current()
	return phase.DaysUntilStart(t.StartDate, s.clock.Now())
}

// CurrentDayIndex returns the 1-based trip day for today.
func (s *Session) CurrentDayIndex() int {
	t := s.trip.Current()
	return phase.CurrentDayIndex(t.StartDate, t.ExpectedDays(), s.clock.Now())
}

// Refresh re-reads the trip from the backend and adopts it.
func (s *Session) Refresh(ctx context.Context) (domain.Trip, error) {
	trip, err := s.backend.GetTrip(ctx, s.tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("planner.Session.Refresh: %w", err)
	}
	s.trip.Adopt(trip)
	return trip, nil
}

// ---- optimistic edits ------------------------------------------------------

// ToggleChecklistItem flips one checklist item. The whole checklist is sent,
// and restored as a whole on failure.
func (s *Session) ToggleChecklistItem(ctx context.Context, itemID string) (CommitResult, error) {
	now := s.clock.Now()
	return s.commit(ctx, "checklist",
		func(t domain.Trip) (domain.Trip, error) {
			items, err := domain.ToggleChecklistItem(t.Metadata.Checklist, itemID, now)
			if err != nil {
				return t, fmt.Errorf("planner.Session.ToggleChecklistItem: %w", err)
			}
			t.Metadata.Checklist = items
			return t, nil
		},
		s.persistChecklist,
		nil,
	)
}

// AddChecklistItem appends an unchecked item.
func (s *Session) AddChecklistItem(ctx context.Context, label string) (CommitResult, error) {
	return s.commit(ctx, "checklist",
		func(t domain.Trip) (domain.Trip, error) {
			items, _, err := domain.AppendChecklistItem(t.Metadata.Checklist, label)
			if err != nil {
				return t, fmt.Errorf("planner.Session.AddChecklistItem: %w", err)
			}
			t.Metadata.Checklist = items
			return t, nil
		},
		s.persistChecklist,
		nil,
	)
}

// AddExpense records a spend. A missing id is generated.
func (s *Session) AddExpense(ctx context.Context, e domain.Expense) (CommitResult, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return s.commit(ctx, "expenses",
		func(t domain.Trip) (domain.Trip, error) {
			if err := domain.ValidateExpense(e); err != nil {
				return t, fmt.Errorf("planner.Session.AddExpense: %w", err)
			}
			t.Metadata.Expenses = append(t.Metadata.Expenses, e)
			return t, nil
		},
		func(ctx context.Context, next domain.Trip) (domain.Trip, error) {
			return s.backend.UpdateTrip(ctx, s.tripID, domain.TripPatch{Expenses: nonNil(next.Metadata.Expenses)})
		},
		nil,
	)
}

// EditNotes updates the notes text at once and saves it after the quiet
// period. Keystroke-level calls are coalesced into a single save.
func (s *Session) EditNotes(text string) error {
	return s.notes.Edit(func(t domain.Trip) (domain.Trip, error) {
		t.Metadata.Notes = text
		return t, nil
	})
}

// FlushNotes saves pending notes immediately.
func (s *Session) FlushNotes() (optimistic.State[domain.Trip], bool) {
	return s.notes.Flush()
}

// NotesPending reports whether a notes edit is waiting to be saved.
func (s *Session) NotesPending() bool { return s.notes.Pending() }

// AddActivity creates an itinerary activity through the child-record
// endpoint. A missing id is generated.
func (s *Session) AddActivity(ctx context.Context, day int, a domain.Activity) (CommitResult, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return s.commit(ctx, "itinerary",
		func(t domain.Trip) (domain.Trip, error) {
			days, err := domain.AddActivity(t.Metadata.Itinerary, day, a)
			if err != nil {
				return t, fmt.Errorf("planner.Session.AddActivity: %w", err)
			}
			t.Metadata.Itinerary = days
			return t, nil
		},
		func(ctx context.Context, _ domain.Trip) (domain.Trip, error) {
			return s.backend.AddActivity(ctx, s.tripID, day, a)
		},
		nil,
	)
}

// DeleteActivity removes an itinerary activity through the child-record
// endpoint.
func (s *Session) DeleteActivity(ctx context.Context, activityID string) (CommitResult, error) {
	return s.commit(ctx, "itinerary",
		func(t domain.Trip) (domain.Trip, error) {
			days, err := domain.RemoveActivity(t.Metadata.Itinerary, activityID)
			if err != nil {
				return t, fmt.Errorf("planner.Session.DeleteActivity: %w", err)
			}
			t.Metadata.Itinerary = days
			return t, nil
		},
		func(ctx context.Context, _ domain.Trip) (domain.Trip, error) {
			return s.backend.DeleteActivity(ctx, s.tripID, activityID)
		},
		nil,
	)
}

// commit runs one optimistic edit and records its outcome. The returned
// channel already holds the Applying state. after, if set, sees the final
// state before it is delivered.
func (s *Session) commit(
	ctx context.Context,
	field string,
	mutate optimistic.Mutator[domain.Trip],
	persist optimistic.Persister[domain.Trip],
	after func(optimistic.State[domain.Trip]),
) (CommitResult, error) {
	in, err := s.trip.Commit(ctx, mutate, persist)
	if err != nil {
		return nil, err
	}
	out := make(chan optimistic.State[domain.Trip], 2)
	out <- <-in
	go func() {
		defer close(out)
		for st := range in {
			s.metrics.RecordCommit(field, string(st.Kind))
			if after != nil {
				after(st)
			}
			out <- st
		}
	}()
	return out, nil
}

func (s *Session) persistChecklist(ctx context.Context, next domain.Trip) (domain.Trip, error) {
	return s.backend.UpdateTrip(ctx, s.tripID, domain.TripPatch{Checklist: nonNil(next.Metadata.Checklist)})
}

func (s *Session) persistNotes(ctx context.Context, next domain.Trip) (domain.Trip, error) {
	notes := next.Metadata.Notes
	return s.backend.UpdateTrip(ctx, s.tripID, domain.TripPatch{Notes: &notes})
}

// nonNil turns a nil slice into an empty one so the patch clears the
// collection instead of leaving it unchanged.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
