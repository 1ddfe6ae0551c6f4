package genjob_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripmind/internal/clock"
	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/genjob"
)

// mockBackend is a hand-written double for genjob.Generator and
// genjob.TripFetcher. Unset function fields return zero values.
type mockBackend struct {
	mu      sync.Mutex
	fetches int
	begins  int

	begin   func(ctx context.Context, tripID uuid.UUID, instruction string) (domain.GenerationAck, error)
	getTrip func(ctx context.Context, id uuid.UUID, call int) (domain.Trip, error)
}

func (m *mockBackend) BeginGeneration(ctx context.Context, tripID uuid.UUID, instruction string) (domain.GenerationAck, error) {
	m.mu.Lock()
	m.begins++
	m.mu.Unlock()
	if m.begin != nil {
		return m.begin(ctx, tripID, instruction)
	}
	return domain.GenerationAck{TripID: tripID, Accepted: true}, nil
}

func (m *mockBackend) GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	m.mu.Lock()
	m.fetches++
	call := m.fetches
	m.mu.Unlock()
	if m.getTrip != nil {
		return m.getTrip(ctx, id, call)
	}
	return domain.Trip{ID: id}, nil
}

func (m *mockBackend) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

var (
	_ genjob.Generator   = (*mockBackend)(nil)
	_ genjob.TripFetcher = (*mockBackend)(nil)
)

// ---- helpers ---------------------------------------------------------------

func tripWithItinerary(id uuid.UUID) domain.Trip {
	return domain.Trip{
		ID: id,
		Metadata: domain.Metadata{Itinerary: []domain.ItineraryDay{
			{Day: 1, Title: "Arrival", Activities: []domain.Activity{{ID: "a1", Title: "Check in"}}},
		}},
	}
}

func newController(b *mockBackend, cfg genjob.Config) (*genjob.Controller, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	cfg.Clock = clk
	return genjob.New(b, b, cfg), clk
}

// ---- tests -----------------------------------------------------------------

func TestJob_ReadyOnFirstPoll(t *testing.T) {
	b := &mockBackend{getTrip: func(_ context.Context, id uuid.UUID, _ int) (domain.Trip, error) {
		return tripWithItinerary(id), nil
	}}
	ctrl, clk := newController(b, genjob.Config{})
	tripID := uuid.New()

	job, err := ctrl.Start(context.Background(), tripID, genjob.KindItinerary, "slow mornings")
	require.NoError(t, err)
	assert.Equal(t, genjob.StateGenerating, job.State())
	assert.Equal(t, 0, b.fetchCount(), "first poll waits one interval")

	clk.Advance(time.Second)

	out, ok := job.Outcome()
	require.True(t, ok)
	assert.Equal(t, genjob.StateSucceeded, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, tripID, out.Trip.ID)
	assert.True(t, out.Trip.HasItinerary())
	assert.Equal(t, 1, b.fetchCount())
	assert.Equal(t, 0, clk.Pending())
}

func TestJob_ReadyOnThirdPoll(t *testing.T) {
	b := &mockBackend{getTrip: func(_ context.Context, id uuid.UUID, call int) (domain.Trip, error) {
		if call < 3 {
			return domain.Trip{ID: id}, nil
		}
		return tripWithItinerary(id), nil
	}}
	ctrl, clk := newController(b, genjob.Config{})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	clk.Advance(2 * time.Second)
	assert.Equal(t, genjob.StateGenerating, job.State())
	assert.Equal(t, 2, job.Attempts())

	clk.Advance(time.Second)
	assert.Equal(t, genjob.StateSucceeded, job.State())
	assert.Equal(t, 3, job.Attempts())
}

func TestJob_NeverReadyTimesOutAtCeiling(t *testing.T) {
	b := &mockBackend{}
	ctrl, clk := newController(b, genjob.Config{})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	for i := 0; i < genjob.DefaultMaxAttempts; i++ {
		clk.Advance(time.Second)
	}

	out, ok := job.Outcome()
	require.True(t, ok)
	assert.Equal(t, genjob.StateTimedOut, out.State)
	assert.Equal(t, genjob.DefaultMaxAttempts, out.Attempts)
	assert.Equal(t, genjob.TimedOutMessage, out.Message)
	assert.Contains(t, out.Message, "may still finish")

	// No further polls after the ceiling.
	clk.Advance(time.Minute)
	assert.Equal(t, genjob.DefaultMaxAttempts, b.fetchCount())
	assert.Equal(t, 0, clk.Pending())
}

func TestJob_FetchErrorsCountAsAttempts(t *testing.T) {
	fetchErr := errors.New("connection reset")
	b := &mockBackend{getTrip: func(context.Context, uuid.UUID, int) (domain.Trip, error) {
		return domain.Trip{}, fetchErr
	}}
	ctrl, clk := newController(b, genjob.Config{MaxAttempts: 3, Interval: 500 * time.Millisecond})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	clk.Advance(5 * time.Second)

	out, ok := job.Outcome()
	require.True(t, ok)
	assert.Equal(t, genjob.StateTimedOut, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.ErrorIs(t, out.Err, fetchErr)
	assert.Equal(t, 3, b.fetchCount())
}

func TestJob_BeginErrorFailsWithoutPolling(t *testing.T) {
	beginErr := errors.New("503 service unavailable")
	b := &mockBackend{begin: func(context.Context, uuid.UUID, string) (domain.GenerationAck, error) {
		return domain.GenerationAck{}, beginErr
	}}
	ctrl, clk := newController(b, genjob.Config{})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)

	out, ok := job.Outcome()
	require.True(t, ok)
	assert.Equal(t, genjob.StateFailed, out.State)
	assert.ErrorIs(t, out.Err, beginErr)
	assert.NotEmpty(t, out.Message)
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(time.Minute)
	assert.Equal(t, 0, b.fetchCount())
}

func TestJob_DeclinedAckFails(t *testing.T) {
	b := &mockBackend{begin: func(_ context.Context, id uuid.UUID, _ string) (domain.GenerationAck, error) {
		return domain.GenerationAck{TripID: id, Accepted: false, Message: "generation already running"}, nil
	}}
	ctrl, _ := newController(b, genjob.Config{})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)

	out, _ := job.Outcome()
	assert.Equal(t, genjob.StateFailed, out.State)
	assert.Equal(t, "generation already running", out.Message)
	assert.ErrorIs(t, out.Err, domain.ErrConflict)
}

func TestJob_CancelBetweenPolls(t *testing.T) {
	b := &mockBackend{}
	ctrl, clk := newController(b, genjob.Config{})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	clk.Advance(2 * time.Second)
	job.Cancel()
	clk.Advance(time.Minute)

	assert.Equal(t, genjob.StateCancelled, job.State())
	assert.Equal(t, 2, b.fetchCount())
	assert.Equal(t, 0, clk.Pending())
	select {
	case <-job.Done():
	default:
		t.Fatal("Done must be closed after Cancel")
	}
}

func TestJob_CancelDiscardsInFlightPoll(t *testing.T) {
	var job *genjob.Job
	b := &mockBackend{getTrip: func(_ context.Context, id uuid.UUID, _ int) (domain.Trip, error) {
		// The user navigates away while the fetch is on the wire.
		job.Cancel()
		return tripWithItinerary(id), nil
	}}
	ctrl, clk := newController(b, genjob.Config{})
	job = ctrl.NewJob(uuid.New(), genjob.KindItinerary)

	require.NoError(t, job.Run(context.Background(), ""))
	clk.Advance(time.Second)

	out, ok := job.Outcome()
	require.True(t, ok)
	assert.Equal(t, genjob.StateCancelled, out.State)
	assert.Equal(t, 0, out.Attempts, "a discarded poll is not counted")
	assert.False(t, out.Trip.HasItinerary())
}

func TestJob_ContextCancellationCancelsJob(t *testing.T) {
	b := &mockBackend{}
	ctrl, _ := newController(b, genjob.Config{})
	ctx, cancel := context.WithCancel(context.Background())

	job, err := ctrl.Start(ctx, uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	cancel()

	waitCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	out, err := job.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, genjob.StateCancelled, out.State)
}

func TestJob_WaitHonoursCallerContext(t *testing.T) {
	b := &mockBackend{}
	ctrl, _ := newController(b, genjob.Config{})
	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Wait(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, genjob.StateGenerating, job.State())
}

func TestJob_RunTwiceIsRejected(t *testing.T) {
	b := &mockBackend{}
	ctrl, _ := newController(b, genjob.Config{})
	job := ctrl.NewJob(uuid.New(), genjob.KindItinerary)
	assert.Equal(t, genjob.StateIdle, job.State())

	require.NoError(t, job.Run(context.Background(), ""))
	err := job.Run(context.Background(), "")

	assert.ErrorIs(t, err, genjob.ErrNotIdle)
	assert.Equal(t, 1, b.begins)
}

func TestJob_CustomReadyAndHooks(t *testing.T) {
	b := &mockBackend{getTrip: func(_ context.Context, id uuid.UUID, call int) (domain.Trip, error) {
		trip := tripWithItinerary(id)
		trip.Metadata.Generation = domain.GenerationConfig{DaysGenerated: call, TotalDays: 3, Partial: call < 3}
		return trip, nil
	}}
	var polls []int
	var finished []genjob.Outcome
	ctrl, clk := newController(b, genjob.Config{
		Ready: func(t domain.Trip) bool { return !t.Metadata.Generation.Partial },
		OnPoll: func(_ genjob.Kind, attempt int, trip domain.Trip, err error) {
			polls = append(polls, trip.Metadata.Generation.DaysGenerated)
		},
		OnFinish: func(_ genjob.Kind, out genjob.Outcome) { finished = append(finished, out) },
	})

	job, err := ctrl.Start(context.Background(), uuid.New(), genjob.KindItinerary, "")
	require.NoError(t, err)
	clk.Advance(10 * time.Second)
	job.Cancel() // no-op on a finished job

	assert.Equal(t, []int{1, 2, 3}, polls)
	require.Len(t, finished, 1)
	assert.Equal(t, genjob.StateSucceeded, finished[0].State)
	assert.Equal(t, genjob.StateSucceeded, job.State())
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, genjob.StateIdle.Terminal())
	assert.False(t, genjob.StateGenerating.Terminal())
	for _, s := range []genjob.State{genjob.StateSucceeded, genjob.StateTimedOut, genjob.StateFailed, genjob.StateCancelled} {
		assert.True(t, s.Terminal(), s)
	}
}
