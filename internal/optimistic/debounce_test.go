package optimistic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripmind/internal/clock"
	"github.com/pkordes/tripmind/internal/optimistic"
)

// recordingPersister captures every value it is asked to save.
type recordingPersister struct {
	saved []note
	err   error
}

func (r *recordingPersister) persist(_ context.Context, n note) (note, error) {
	r.saved = append(r.saved, n)
	if r.err != nil {
		return note{}, r.err
	}
	n.Version++
	return n, nil
}

func newDebounced(t *testing.T, initial note, p *recordingPersister) (*optimistic.Store[note], *optimistic.Debounced[note], *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	s := newStore(initial)
	d := optimistic.NewDebounced(context.Background(), s, p.persist,
		optimistic.WithClock[note](clk),
		optimistic.WithQuietPeriod[note](time.Second),
	)
	return s, d, clk
}

func TestDebounced_CoalescesRapidEdits(t *testing.T) {
	p := &recordingPersister{}
	s, d, clk := newDebounced(t, note{}, p)

	for _, text := range []string{"h", "he", "hel", "hell", "hello"} {
		require.NoError(t, d.Edit(setText(text)))
		// Each keystroke is visible immediately.
		assert.Equal(t, text, s.Current().Text)
		clk.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, p.saved, "nothing is persisted inside the quiet window")

	clk.Advance(time.Second)

	require.Len(t, p.saved, 1)
	assert.Equal(t, "hello", p.saved[0].Text)
	assert.Equal(t, 1, s.Current().Version, "server value adopted after the save")
	assert.Equal(t, optimistic.StatusSaved, s.Status())
}

func TestDebounced_SeparateWindowsPersistSeparately(t *testing.T) {
	p := &recordingPersister{}
	_, d, clk := newDebounced(t, note{}, p)

	require.NoError(t, d.Edit(setText("first")))
	clk.Advance(2 * time.Second)
	require.NoError(t, d.Edit(setText("second")))
	clk.Advance(2 * time.Second)

	require.Len(t, p.saved, 2)
	assert.Equal(t, "first", p.saved[0].Text)
	assert.Equal(t, "second", p.saved[1].Text)
}

func TestDebounced_FailureRestoresValueBeforeWindow(t *testing.T) {
	p := &recordingPersister{err: errors.New("503")}
	s, d, clk := newDebounced(t, note{Text: "saved text"}, p)

	require.NoError(t, d.Edit(setText("saved text!")))
	require.NoError(t, d.Edit(setText("saved text!!")))
	clk.Advance(time.Second)

	assert.Equal(t, "saved text", s.Current().Text)
	assert.Equal(t, optimistic.StatusError, s.Status())
}

func TestDebounced_FlushPersistsImmediately(t *testing.T) {
	p := &recordingPersister{}
	_, d, clk := newDebounced(t, note{}, p)

	require.NoError(t, d.Edit(setText("leaving")))
	st, ok := d.Flush()

	require.True(t, ok)
	assert.Equal(t, optimistic.Settled, st.Kind)
	require.Len(t, p.saved, 1)

	// The stopped timer must not fire a second save.
	clk.Advance(5 * time.Second)
	assert.Len(t, p.saved, 1)
	assert.False(t, d.Pending())
}

func TestDebounced_FlushWithNothingPending(t *testing.T) {
	p := &recordingPersister{}
	_, d, _ := newDebounced(t, note{}, p)

	_, ok := d.Flush()

	assert.False(t, ok)
	assert.Empty(t, p.saved)
}

func TestDebounced_StopDropsPendingSave(t *testing.T) {
	p := &recordingPersister{}
	s, d, clk := newDebounced(t, note{}, p)

	require.NoError(t, d.Edit(setText("typed")))
	d.Stop()
	clk.Advance(5 * time.Second)

	assert.Empty(t, p.saved)
	assert.Equal(t, "typed", s.Current().Text)
}

func TestDebounced_InFlightSaveSupersededByNewKeystroke(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	s := newStore(note{})

	var d *optimistic.Debounced[note]
	calls := 0
	persist := func(_ context.Context, n note) (note, error) {
		calls++
		if calls == 1 {
			// The user keeps typing while the first save is on the wire.
			require.NoError(t, d.Edit(setText("abc")))
		}
		return n, nil
	}
	var results []optimistic.State[note]
	d = optimistic.NewDebounced(context.Background(), s, persist,
		optimistic.WithClock[note](clk),
		optimistic.OnSettle(func(st optimistic.State[note]) { results = append(results, st) }),
	)

	require.NoError(t, d.Edit(setText("ab")))
	clk.Advance(time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, optimistic.Superseded, results[0].Kind)
	assert.Equal(t, "abc", s.Current().Text, "stale save result must not clobber the newer keystroke")

	clk.Advance(time.Second)
	require.Len(t, results, 2)
	assert.Equal(t, optimistic.Settled, results[1].Kind)
	assert.Equal(t, "abc", results[1].Value.Text)
}

func TestDebounced_MutatorErrorLeavesTimerAlone(t *testing.T) {
	p := &recordingPersister{}
	_, d, clk := newDebounced(t, note{}, p)

	err := d.Edit(func(n note) (note, error) { return n, errors.New("too long") })

	assert.Error(t, err)
	assert.False(t, d.Pending())
	assert.Equal(t, 0, clk.Pending())
}

// addTag is a commit touching a different field than the debounced text.
func addTag(tag string) optimistic.Mutator[note] {
	return func(n note) (note, error) {
		n.Tags = append(n.Tags, tag)
		return n, nil
	}
}

// tagServer acknowledges tag saves the way a backend that has not yet seen
// the unsaved text would: it echoes the tags with the stored text.
func tagServer(storedText string) optimistic.Persister[note] {
	return func(_ context.Context, n note) (note, error) {
		return note{Text: storedText, Tags: n.Tags, Version: n.Version + 1}, nil
	}
}

func TestDebounced_CommitSettlingInsideWindowKeepsUnsavedText(t *testing.T) {
	p := &recordingPersister{}
	s, d, clk := newDebounced(t, note{Text: "old"}, p)

	require.NoError(t, d.Edit(setText("Book tram")))
	ch, err := s.Commit(context.Background(), addTag("packed"), tagServer("old"))
	require.NoError(t, err)
	require.Equal(t, optimistic.Settled, optimistic.Final(ch).Kind)

	assert.Equal(t, "Book tram", s.Current().Text, "unsaved text survives the unrelated settle")
	assert.Equal(t, []string{"packed"}, s.Current().Tags)

	clk.Advance(time.Second)

	require.Len(t, p.saved, 1)
	assert.Equal(t, "Book tram", p.saved[0].Text)
	assert.Equal(t, "Book tram", s.Current().Text)
	assert.Equal(t, []string{"packed"}, s.Current().Tags)
}

func TestDebounced_FailureKeepsCommitSettledInsideWindow(t *testing.T) {
	p := &recordingPersister{err: errors.New("503")}
	s, d, clk := newDebounced(t, note{Text: "old"}, p)

	require.NoError(t, d.Edit(setText("draft")))
	ch, err := s.Commit(context.Background(), addTag("packed"), tagServer("old"))
	require.NoError(t, err)
	optimistic.Final(ch)

	clk.Advance(time.Second)

	assert.Equal(t, "old", s.Current().Text, "only the text reverts")
	assert.Equal(t, []string{"packed"}, s.Current().Tags)
	assert.Equal(t, optimistic.StatusError, s.Status())
}

func TestDebounced_TextSurvivesAdopt(t *testing.T) {
	p := &recordingPersister{}
	s, d, clk := newDebounced(t, note{}, p)

	require.NoError(t, d.Edit(setText("typing")))
	s.Adopt(note{Text: "fetched", Tags: []string{"a"}})

	assert.Equal(t, "typing", s.Current().Text)

	clk.Advance(time.Second)
	require.Len(t, p.saved, 1)
	assert.Equal(t, "typing", p.saved[0].Text)
	assert.Equal(t, []string{"a"}, p.saved[0].Tags)
}
