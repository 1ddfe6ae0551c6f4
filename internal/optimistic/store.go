// Package optimistic applies local edits to an entity immediately, persists
// them in the background, and reconciles with the server's answer or rolls
// back to the exact previous value on failure.
//
// Every applied edit takes the next value of a monotonically increasing
// sequence number. A persistence result is only adopted if its edit is still
// the latest one; otherwise it is reported as Superseded and dropped, so a
// slow first save can never overwrite a faster second edit.
//
// Debounced field edits are held as overlays on top of the settled value
// until their own save resolves. Settling or rolling back an unrelated commit
// replaces the value underneath and re-applies the overlays, so unsaved text
// stays visible and is still sent when the quiet period ends.
package optimistic

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Status is the save indicator shown next to an edited field.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Kind identifies a step in a commit's state stream.
type Kind string

const (
	// Applying carries the optimistic value, emitted before persistence runs.
	Applying Kind = "applying"
	// Settled carries the server's authoritative value.
	Settled Kind = "settled"
	// RolledBack carries the restored previous value and the persistence error.
	RolledBack Kind = "rolled_back"
	// Superseded means a newer edit replaced this one while it was in flight;
	// Value is the store's current value, untouched by this result.
	Superseded Kind = "superseded"
)

// State is one element of a commit's state stream.
type State[T any] struct {
	Kind  Kind
	Value T
	Err   error
	Seq   uint64
}

// Mutator produces the optimistic next value from the current one.
// It receives a clone and may modify it freely.
type Mutator[T any] func(current T) (T, error)

// Persister sends next to the backend and returns the authoritative result.
// It is called at most once per commit and never retried.
type Persister[T any] func(ctx context.Context, next T) (T, error)

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithClone sets the deep-copy function applied before each mutator call.
// Without it values are copied by assignment, which is only safe for types
// that hold no slices, maps or pointers.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(s *Store[T]) { s.clone = clone }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(s *Store[T]) { s.logger = logger }
}

// Store holds the canonical value of one entity.
// It is safe for concurrent use.
type Store[T any] struct {
	mu        sync.Mutex
	base      T // value without overlays
	value     T // base with overlays applied; what callers see
	overlays  []*overlay[T]
	seq       uint64
	status    Status
	err       error
	clone     func(T) T
	logger    *slog.Logger
	observers []func(State[T])
}

// New returns a Store holding initial.
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		base:   initial,
		value:  initial,
		status: StatusIdle,
		clone:  func(v T) T { return v },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the visible value.
func (s *Store[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.value)
}

// Status returns the save status of the most recent edit.
func (s *Store[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error of the last rolled-back edit, or nil.
func (s *Store[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Seq returns the sequence number of the latest applied edit.
func (s *Store[T]) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Subscribe registers fn to receive every state change. fn is called without
// the store's lock held, so it may call back into the store.
func (s *Store[T]) Subscribe(fn func(State[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Adopt replaces the visible value with an authoritative server read, such as
// a freshly fetched entity. It counts as the newest edit, so results of saves
// still in flight are treated as superseded. Pending debounced edits are
// re-applied on top of v.
func (s *Store[T]) Adopt(v T) {
	s.mu.Lock()
	s.seq++
	s.base = v
	s.recompute()
	s.status = StatusSaved
	s.err = nil
	st := State[T]{Kind: Settled, Value: s.clone(s.value), Seq: s.seq}
	s.mu.Unlock()
	s.notify(st)
}

// Merge folds a server-side change into the value without counting as an
// edit: saves in flight still settle normally. Use it for fields the user
// cannot edit, such as the result of a background job. A mutator error is
// returned and leaves the store untouched.
func (s *Store[T]) Merge(mutate Mutator[T]) error {
	if mutate == nil {
		panic("optimistic: Merge requires a mutator")
	}
	s.mu.Lock()
	next, err := mutate(s.clone(s.base))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.base = next
	s.recompute()
	st := State[T]{Kind: Settled, Value: s.clone(s.value), Seq: s.seq}
	s.mu.Unlock()
	s.notify(st)
	return nil
}

// Commit applies mutate to the current value, exposes the result at once,
// then calls persist in the background.
//
// The returned channel already holds the Applying state when Commit returns;
// it then receives exactly one of Settled, RolledBack or Superseded and is
// closed. A mutator error is returned directly and leaves the store
// untouched. Passing a nil mutator or persister is a programming error and
// panics.
func (s *Store[T]) Commit(ctx context.Context, mutate Mutator[T], persist Persister[T]) (<-chan State[T], error) {
	if mutate == nil || persist == nil {
		panic("optimistic: Commit requires a mutator and a persister")
	}

	prev, next, seq, err := s.apply(mutate)
	if err != nil {
		return nil, err
	}

	out := make(chan State[T], 2)
	applying := State[T]{Kind: Applying, Value: s.clone(next), Seq: seq}
	out <- applying
	s.notify(applying)

	go func() {
		defer close(out)
		st := s.settle(ctx, seq, prev, next, persist)
		out <- st
	}()
	return out, nil
}

// Final drains ch and returns its last state.
func Final[T any](ch <-chan State[T]) State[T] {
	var last State[T]
	for st := range ch {
		last = st
	}
	return last
}

// apply runs mutate under the lock so edits are applied in issue order.
// prev is the base before the edit; next is the visible value after it.
func (s *Store[T]) apply(mutate Mutator[T]) (prev, next T, seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.base
	nextBase, err := mutate(s.clone(prev))
	if err != nil {
		return prev, next, 0, err
	}
	s.seq++
	s.base = nextBase
	s.recompute()
	s.status = StatusSaving
	s.err = nil
	return prev, s.value, s.seq, nil
}

// settle persists next and reconciles the result with the store.
func (s *Store[T]) settle(ctx context.Context, seq uint64, prev, next T, persist Persister[T]) State[T] {
	server, perr := persist(ctx, s.clone(next))

	s.mu.Lock()
	var st State[T]
	switch {
	case seq != s.seq:
		st = State[T]{Kind: Superseded, Value: s.clone(s.value), Err: perr, Seq: seq}
	case perr != nil:
		s.base = prev
		s.recompute()
		s.status = StatusError
		s.err = perr
		st = State[T]{Kind: RolledBack, Value: s.clone(s.value), Err: perr, Seq: seq}
	default:
		s.base = server
		s.recompute()
		s.status = StatusSaved
		st = State[T]{Kind: Settled, Value: s.clone(s.value), Seq: seq}
	}
	s.mu.Unlock()

	switch st.Kind {
	case RolledBack:
		s.logger.WarnContext(ctx, "optimistic edit rolled back", "seq", seq, "error", perr)
	case Superseded:
		s.logger.DebugContext(ctx, "discarded stale save result", "seq", seq, "latest_seq", s.Seq())
	}
	s.notify(st)
	return st
}

// ---- overlays ---------------------------------------------------------------

// overlay is a pending field edit owned by one Debounced.
type overlay[T any] struct {
	mutate Mutator[T]
	gen    uint64 // bumped on every keystroke folded into mutate
	active bool
}

// recompute rebuilds the visible value from base. Callers hold s.mu.
func (s *Store[T]) recompute() {
	v := s.base
	for _, ov := range s.overlays {
		next, err := ov.mutate(s.clone(v))
		if err != nil {
			s.logger.Debug("skipped pending edit that no longer applies", "error", err)
			continue
		}
		v = next
	}
	s.value = v
}

// setOverlay folds mutate into ov and re-applies it. mutate is validated
// against the visible value first; on error nothing changes.
func (s *Store[T]) setOverlay(ov *overlay[T], mutate Mutator[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := mutate(s.clone(s.value)); err != nil {
		return err
	}
	if prior := ov.mutate; prior != nil {
		ov.mutate = func(v T) (T, error) {
			v, err := prior(v)
			if err != nil {
				return v, err
			}
			return mutate(v)
		}
	} else {
		ov.mutate = mutate
	}
	ov.gen++
	if !ov.active {
		ov.active = true
		s.overlays = append(s.overlays, ov)
	}
	s.recompute()
	s.status = StatusIdle
	s.err = nil
	return nil
}

// dropOverlay removes ov. When fold is set its edit is first written into
// base, so the visible value does not change. Callers hold s.mu.
func (s *Store[T]) dropOverlay(ov *overlay[T], fold bool) {
	if !ov.active {
		return
	}
	if fold {
		if next, err := ov.mutate(s.clone(s.base)); err == nil {
			s.base = next
		}
	}
	s.overlays = slices.DeleteFunc(s.overlays, func(o *overlay[T]) bool { return o == ov })
	ov.mutate = nil
	ov.active = false
	s.recompute()
}

// settleOverlay reconciles the result of persisting ov as it stood at gen,
// sent while the store was at seq.
func (s *Store[T]) settleOverlay(ctx context.Context, ov *overlay[T], gen, seq uint64, server T, perr error) State[T] {
	s.mu.Lock()
	newer := ov.gen != gen
	var st State[T]
	switch {
	case perr != nil && newer:
		// A newer keystroke will be saved on its own; keep showing it.
		st = State[T]{Kind: Superseded, Value: s.clone(s.value), Err: perr, Seq: seq}
	case perr != nil:
		// Only the field reverts; other edits stay as they are.
		s.dropOverlay(ov, false)
		s.status = StatusError
		s.err = perr
		st = State[T]{Kind: RolledBack, Value: s.clone(s.value), Err: perr, Seq: seq}
	case seq == s.seq:
		s.base = server
		if newer {
			s.recompute()
			st = State[T]{Kind: Superseded, Value: s.clone(s.value), Seq: seq}
			break
		}
		s.dropOverlay(ov, false)
		s.status = StatusSaved
		st = State[T]{Kind: Settled, Value: s.clone(s.value), Seq: seq}
	default:
		// A commit was applied meanwhile; the server value would undo it.
		if !newer {
			s.dropOverlay(ov, true)
		}
		st = State[T]{Kind: Superseded, Value: s.clone(s.value), Seq: seq}
	}
	s.mu.Unlock()

	switch st.Kind {
	case RolledBack:
		s.logger.WarnContext(ctx, "debounced edit rolled back", "seq", seq, "error", perr)
	case Superseded:
		s.logger.DebugContext(ctx, "debounced save overtaken", "seq", seq, "error", perr)
	}
	s.notify(st)
	return st
}

func (s *Store[T]) notify(st State[T]) {
	s.mu.Lock()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}
