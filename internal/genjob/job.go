// Package genjob starts a long-running backend computation, such as filling a
// trip's itinerary, and polls the trip until the result is visible, the
// attempt budget runs out, or the caller cancels.
//
// A Job moves through these states:
//
//	idle -> generating -> succeeded | timed_out | failed | cancelled
//
// Every terminal state is final. Attempts never exceed Config.MaxAttempts and
// no poll is scheduled after a terminal state is reached.
package genjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripmind/internal/clock"
	"github.com/pkordes/tripmind/internal/domain"
)

// State is the lifecycle state of a Job.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateSucceeded  State = "succeeded"
	StateTimedOut   State = "timed_out"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateTimedOut, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Kind names what a job generates.
type Kind string

// KindItinerary fills a trip's day-by-day itinerary.
const KindItinerary Kind = "itinerary"

const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 40
)

// ErrNotIdle is returned by Job.Run when the job has already been started.
var ErrNotIdle = errors.New("genjob: job already started")

// TimedOutMessage is shown when the polling budget runs out. The backend may
// still be working, so the user is told how to pick the result up later.
const TimedOutMessage = "Generation is taking longer than expected. It may still finish in the background; reload the trip in a minute to see the result."

// Generator asks the backend to start producing content for a trip.
type Generator interface {
	BeginGeneration(ctx context.Context, tripID uuid.UUID, instruction string) (domain.GenerationAck, error)
}

// TripFetcher reads the authoritative trip.
type TripFetcher interface {
	GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

// Outcome is the terminal result of a Job.
type Outcome struct {
	State    State
	Trip     domain.Trip // set when State is StateSucceeded
	Attempts int
	Message  string
	Err      error
}

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	// Ready decides whether a fetched trip carries the finished result.
	// Defaults to "the itinerary is non-empty".
	Ready func(domain.Trip) bool
	// OnPoll, if set, sees every poll result, including partial trips.
	OnPoll func(kind Kind, attempt int, trip domain.Trip, err error)
	// OnFinish, if set, is called once per job with its outcome.
	OnFinish func(kind Kind, out Outcome)
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Controller creates jobs that share one backend and one Config.
type Controller struct {
	gen   Generator
	fetch TripFetcher
	cfg   Config
}

// New returns a Controller.
func New(gen Generator, fetch TripFetcher, cfg Config) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Ready == nil {
		cfg.Ready = domain.Trip.HasItinerary
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{gen: gen, fetch: fetch, cfg: cfg}
}

// NewJob returns an idle job for tripID.
func (c *Controller) NewJob(tripID uuid.UUID, kind Kind) *Job {
	return &Job{
		ctrl:   c,
		tripID: tripID,
		kind:   kind,
		state:  StateIdle,
		done:   make(chan struct{}),
		logger: c.cfg.Logger.With("trip_id", tripID, "kind", kind),
	}
}

// Start is NewJob followed by Run.
func (c *Controller) Start(ctx context.Context, tripID uuid.UUID, kind Kind, instruction string) (*Job, error) {
	job := c.NewJob(tripID, kind)
	if err := job.Run(ctx, instruction); err != nil {
		return nil, err
	}
	return job, nil
}

// Job is one generation run. Its methods are safe for concurrent use.
type Job struct {
	ctrl   *Controller
	tripID uuid.UUID
	kind   Kind
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	attempts  int
	outcome   Outcome
	timer     clock.Timer
	ctx       context.Context
	cancelCtx context.CancelFunc
	unwatch   func() bool
	done      chan struct{}
}

// TripID returns the trip the job generates for.
func (j *Job) TripID() uuid.UUID { return j.tripID }

// Kind returns what the job generates.
func (j *Job) Kind() Kind { return j.kind }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Attempts returns the number of polls completed so far.
func (j *Job) Attempts() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attempts
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Outcome returns the terminal outcome, or false while the job is running.
func (j *Job) Outcome() (Outcome, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.Terminal() {
		return Outcome{}, false
	}
	return j.outcome, true
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		out, _ := j.Outcome()
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run sends the begin request and, once it is acknowledged, schedules the
// first poll one Interval later. A failed begin request moves the job to
// failed without polling; that outcome is reported through Outcome, not as
// Run's error. Cancelling ctx cancels the job.
func (j *Job) Run(ctx context.Context, instruction string) error {
	j.mu.Lock()
	if j.state != StateIdle {
		j.mu.Unlock()
		return fmt.Errorf("genjob.Job.Run: %w", ErrNotIdle)
	}
	j.state = StateGenerating
	j.ctx, j.cancelCtx = context.WithCancel(ctx)
	j.unwatch = context.AfterFunc(ctx, j.Cancel)
	jobCtx := j.ctx
	j.mu.Unlock()

	j.logger.InfoContext(ctx, "generation started")
	ack, err := j.ctrl.gen.BeginGeneration(jobCtx, j.tripID, instruction)
	if err != nil {
		j.finish(Outcome{
			State:   StateFailed,
			Message: "Could not start generation. Please try again.",
			Err:     err,
		})
		return nil
	}
	if !ack.Accepted {
		msg := ack.Message
		if msg == "" {
			msg = "The server declined to start generation."
		}
		j.finish(Outcome{State: StateFailed, Message: msg, Err: fmt.Errorf("genjob.Job.Run: %w: %s", domain.ErrConflict, msg)})
		return nil
	}

	j.mu.Lock()
	if j.state == StateGenerating {
		j.timer = j.ctrl.cfg.Clock.AfterFunc(j.ctrl.cfg.Interval, j.poll)
	}
	j.mu.Unlock()
	return nil
}

// Cancel stops the job. No further poll is scheduled and the result of a poll
// already in flight is discarded. Cancelling a finished job does nothing.
func (j *Job) Cancel() {
	j.finish(Outcome{State: StateCancelled, Message: "Generation cancelled."})
}

func (j *Job) poll() {
	j.mu.Lock()
	if j.state != StateGenerating {
		j.mu.Unlock()
		return
	}
	ctx := j.ctx
	j.timer = nil
	j.mu.Unlock()

	trip, err := j.ctrl.fetch.GetTrip(ctx, j.tripID)

	j.mu.Lock()
	if j.state != StateGenerating {
		j.mu.Unlock()
		j.logger.Debug("discarded poll result after job ended")
		return
	}
	j.attempts++
	attempt := j.attempts
	cfg := j.ctrl.cfg
	ready := err == nil && cfg.Ready(trip)
	if !ready && attempt < cfg.MaxAttempts {
		j.timer = cfg.Clock.AfterFunc(cfg.Interval, j.poll)
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Warn("generation poll failed", "attempt", attempt, "error", err)
	}
	if cfg.OnPoll != nil {
		cfg.OnPoll(j.kind, attempt, trip, err)
	}

	switch {
	case ready:
		j.finish(Outcome{State: StateSucceeded, Trip: trip, Message: "Generation complete."})
	case attempt >= cfg.MaxAttempts:
		j.finish(Outcome{State: StateTimedOut, Message: TimedOutMessage, Err: err})
	}
}

// finish moves the job to out.State unless it already ended.
func (j *Job) finish(out Outcome) {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	out.Attempts = j.attempts
	j.state = out.State
	j.outcome = out
	if j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}
	unwatch, cancel := j.unwatch, j.cancelCtx
	close(j.done)
	j.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if cancel != nil {
		cancel()
	}

	switch out.State {
	case StateSucceeded:
		j.logger.Info("generation succeeded", "attempts", out.Attempts)
	case StateCancelled:
		j.logger.Info("generation cancelled", "attempts", out.Attempts)
	default:
		j.logger.Warn("generation ended without a result", "state", out.State, "attempts", out.Attempts, "error", out.Err)
	}
	if j.ctrl.cfg.OnFinish != nil {
		j.ctrl.cfg.OnFinish(j.kind, out)
	}
}
