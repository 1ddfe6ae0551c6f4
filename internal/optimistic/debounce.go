package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/pkordes/tripmind/internal/clock"
)

// DefaultQuietPeriod is how long a free-text field must stay untouched before
// its value is persisted.
const DefaultQuietPeriod = time.Second

// Debounced coalesces keystroke-level edits of one field. Each Edit updates
// the store's visible value immediately; persistence fires once the field has
// been quiet for the configured period and always carries the latest value.
//
// Edits are not sequenced like commits: they ride on top of whatever the
// store settles underneath until their own save resolves. A failed save
// removes only the field edit.
type Debounced[T any] struct {
	store   *Store[T]
	persist Persister[T]
	quiet   time.Duration
	clock   clock.Clock
	ctx     context.Context
	ov      *overlay[T]

	mu       sync.Mutex
	timer    clock.Timer
	pending  bool
	onSettle func(State[T])
}

// DebounceOption configures a Debounced.
type DebounceOption[T any] func(*Debounced[T])

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod[T any](d time.Duration) DebounceOption[T] {
	return func(db *Debounced[T]) { db.quiet = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock[T any](c clock.Clock) DebounceOption[T] {
	return func(db *Debounced[T]) { db.clock = c }
}

// OnSettle registers fn to receive the result of every debounced save.
func OnSettle[T any](fn func(State[T])) DebounceOption[T] {
	return func(db *Debounced[T]) { db.onSettle = fn }
}

// NewDebounced returns a Debounced writing through store. ctx bounds every
// persistence call it makes.
func NewDebounced[T any](ctx context.Context, store *Store[T], persist Persister[T], opts ...DebounceOption[T]) *Debounced[T] {
	if persist == nil {
		panic("optimistic: NewDebounced requires a persister")
	}
	d := &Debounced[T]{
		store:   store,
		persist: persist,
		quiet:   DefaultQuietPeriod,
		clock:   clock.Real(),
		ctx:     ctx,
		ov:      &overlay[T]{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Edit applies mutate optimistically and restarts the quiet timer.
// Mutator errors are returned directly and do not touch the timer.
func (d *Debounced[T]) Edit(mutate Mutator[T]) error {
	if mutate == nil {
		panic("optimistic: Edit requires a mutator")
	}
	if err := d.store.setOverlay(d.ov, mutate); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.quiet, func() { d.fire() })
	return nil
}

// Pending reports whether an edit is waiting for the quiet period to elapse.
func (d *Debounced[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush persists a pending edit immediately instead of waiting for the
// timer. It returns the settle state, or false if nothing was pending.
func (d *Debounced[T]) Flush() (State[T], bool) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return State[T]{}, false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.fire(), true
}

// Stop cancels a pending save without persisting it. The optimistic value
// stays visible.
func (d *Debounced[T]) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	wasPending := d.pending
	d.pending = false
	d.mu.Unlock()

	if wasPending {
		d.store.mu.Lock()
		d.store.dropOverlay(d.ov, true)
		d.store.mu.Unlock()
	}
}

func (d *Debounced[T]) fire() State[T] {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return State[T]{}
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.store.mu.Lock()
	next := d.store.clone(d.store.value)
	seq := d.store.seq
	gen := d.ov.gen
	d.store.status = StatusSaving
	d.store.mu.Unlock()

	server, perr := d.persist(d.ctx, next)
	st := d.store.settleOverlay(d.ctx, d.ov, gen, seq, server, perr)
	if d.onSettle != nil {
		d.onSettle(st)
	}
	return st
}
