package phase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/tripmind/internal/phase"
)

// ---- helpers ---------------------------------------------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

var (
	tripStart = date(2026, 7, 10)
	tripEnd   = date(2026, 7, 14)
)

// ---- Classify --------------------------------------------------------------

func TestClassify_MissingDatesIsPlanning(t *testing.T) {
	today := date(2026, 7, 12)

	assert.Equal(t, phase.Planning, phase.Classify(nil, ptr(tripEnd), today))
	assert.Equal(t, phase.Planning, phase.Classify(ptr(tripStart), nil, today))
	assert.Equal(t, phase.Planning, phase.Classify(nil, nil, today))
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		want  phase.Phase
	}{
		{"eight days out", tripStart.AddDate(0, 0, -8), phase.Planning},
		{"seven days out", tripStart.AddDate(0, 0, -7), phase.PreTrip},
		{"day before start", tripStart.AddDate(0, 0, -1), phase.PreTrip},
		{"start day", tripStart, phase.Active},
		{"mid trip", tripStart.AddDate(0, 0, 2), phase.Active},
		{"end day", tripEnd, phase.Active},
		{"day after end", tripEnd.AddDate(0, 0, 1), phase.Completed},
		{"long after end", tripEnd.AddDate(1, 0, 0), phase.Completed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, phase.Classify(ptr(tripStart), ptr(tripEnd), tc.today))
		})
	}
}

func TestClassify_ActiveForEveryDayInRange(t *testing.T) {
	for d := tripStart; !d.After(tripEnd); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, phase.Active, phase.Classify(ptr(tripStart), ptr(tripEnd), d), "today=%s", d.Format(time.DateOnly))
	}
	for d := tripEnd.AddDate(0, 0, 1); d.Before(tripEnd.AddDate(0, 0, 30)); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, phase.Completed, phase.Classify(ptr(tripStart), ptr(tripEnd), d))
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	// Late evening the day before start is still pre-trip, not active,
	// and a start stored at noon still counts from midnight.
	lateEvening := time.Date(2026, 7, 9, 23, 59, 0, 0, time.UTC)
	noonStart := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, phase.PreTrip, phase.Classify(ptr(noonStart), ptr(tripEnd), lateEvening))
	assert.Equal(t, phase.Active, phase.Classify(ptr(noonStart), ptr(tripEnd), time.Date(2026, 7, 10, 0, 1, 0, 0, time.UTC)))
}

func TestClassify_UsesViewerCalendarDate(t *testing.T) {
	// 07:00 on July 10 in Tokyo is still July 9 in UTC, but the viewer's
	// calendar says it is the start day.
	tokyo := time.FixedZone("JST", 9*60*60)
	today := time.Date(2026, 7, 10, 7, 0, 0, 0, tokyo)

	assert.Equal(t, phase.Active, phase.Classify(ptr(tripStart), ptr(tripEnd), today))
}

// ---- DaysUntilStart --------------------------------------------------------

func TestDaysUntilStart_NoStartIsSentinel(t *testing.T) {
	assert.Equal(t, -1, phase.DaysUntilStart(nil, date(2026, 7, 1)))
}

func TestDaysUntilStart_CountsDownAndFloorsAtZero(t *testing.T) {
	assert.Equal(t, 10, phase.DaysUntilStart(ptr(tripStart), date(2026, 6, 30)))
	assert.Equal(t, 1, phase.DaysUntilStart(ptr(tripStart), date(2026, 7, 9)))
	assert.Equal(t, 0, phase.DaysUntilStart(ptr(tripStart), tripStart))
	assert.Equal(t, 0, phase.DaysUntilStart(ptr(tripStart), tripEnd.AddDate(0, 1, 0)))
}

func TestDaysUntilStart_MonotonicNonIncreasing(t *testing.T) {
	prev := phase.DaysUntilStart(ptr(tripStart), tripStart.AddDate(0, 0, -40))
	for today := tripStart.AddDate(0, 0, -39); today.Before(tripEnd.AddDate(0, 0, 40)); today = today.AddDate(0, 0, 1) {
		got := phase.DaysUntilStart(ptr(tripStart), today)
		assert.LessOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, 0)
		prev = got
	}
}

// ---- CurrentDayIndex -------------------------------------------------------

func TestCurrentDayIndex_NoStartIsOne(t *testing.T) {
	assert.Equal(t, 1, phase.CurrentDayIndex(nil, 5, date(2026, 7, 12)))
}

func TestCurrentDayIndex_ClampsToRange(t *testing.T) {
	const duration = 5
	for offset := -20; offset <= 20; offset++ {
		got := phase.CurrentDayIndex(ptr(tripStart), duration, tripStart.AddDate(0, 0, offset))
		assert.GreaterOrEqual(t, got, 1)
		assert.LessOrEqual(t, got, duration)
	}
	assert.Equal(t, 1, phase.CurrentDayIndex(ptr(tripStart), duration, tripStart.AddDate(0, 0, -3)))
	assert.Equal(t, duration, phase.CurrentDayIndex(ptr(tripStart), duration, tripEnd.AddDate(0, 0, 9)))
}

func TestCurrentDayIndex_ZeroDurationStaysAtOne(t *testing.T) {
	assert.Equal(t, 1, phase.CurrentDayIndex(ptr(tripStart), 0, tripStart.AddDate(0, 0, 3)))
}

// ---- end to end ------------------------------------------------------------

// TestScenario_FiveDayTrip walks a five-day trip that starts today through
// its lifecycle.
func TestScenario_FiveDayTrip(t *testing.T) {
	today := date(2026, 10, 15)
	start := today
	end := today.AddDate(0, 0, 4)

	assert.Equal(t, phase.Active, phase.Classify(&start, &end, today))
	assert.Equal(t, 1, phase.CurrentDayIndex(&start, 5, today))

	today = today.AddDate(0, 0, 2)
	assert.Equal(t, phase.Active, phase.Classify(&start, &end, today))
	assert.Equal(t, 3, phase.CurrentDayIndex(&start, 5, today))

	today = end.AddDate(0, 0, 1)
	assert.Equal(t, phase.Completed, phase.Classify(&start, &end, today))
}

// ---- Panels ----------------------------------------------------------------

func TestPanels_GateByPhase(t *testing.T) {
	assert.True(t, phase.Enabled(phase.PreTrip, phase.PanelChecklist))
	assert.False(t, phase.Enabled(phase.Planning, phase.PanelChecklist))
	assert.True(t, phase.Enabled(phase.Active, phase.PanelToday))
	assert.False(t, phase.Enabled(phase.Completed, phase.PanelSuggestions))
	assert.Equal(t, phase.Panels(phase.Planning), phase.Panels(phase.Phase("bogus")))
}

func TestPanels_ReturnsCopy(t *testing.T) {
	p := phase.Panels(phase.Active)
	p[0] = phase.PanelSummary

	assert.Equal(t, phase.PanelToday, phase.Panels(phase.Active)[0])
}
