package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/tripmind/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := clock.NewFake(epoch)
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(2 * time.Second)

	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second Stop reports the timer was already stopped")

	c.Advance(time.Minute)

	assert.False(t, fired)
}

func TestFake_CallbackCanRescheduleWithinWindow(t *testing.T) {
	c := clock.NewFake(epoch)
	count := 0

	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3 * time.Second)

	// Ticks at +1s, +2s and +3s; the fourth is scheduled for +4s.
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, c.Pending())
}
