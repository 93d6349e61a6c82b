package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// at builds a UTC timestamp on a fixed Monday.
func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC) // Monday
}

func TestOverlapsHalfOpen(t *testing.T) {
	// Back-to-back slots share a boundary but do not conflict.
	assert.False(t, Overlaps(at(9, 0), at(10, 0), at(10, 0), at(11, 0)))
	// One minute of genuine intersection does.
	assert.True(t, Overlaps(at(9, 0), at(10, 0), at(9, 59), at(10, 1)))
	// Containment.
	assert.True(t, Overlaps(at(9, 0), at(12, 0), at(10, 0), at(11, 0)))
	// Disjoint.
	assert.False(t, Overlaps(at(9, 0), at(10, 0), at(11, 0), at(12, 0)))
}

func TestOverlapsCommutative(t *testing.T) {
	pairs := [][4]time.Time{
		{at(9, 0), at(10, 0), at(9, 30), at(10, 30)},
		{at(9, 0), at(10, 0), at(10, 0), at(11, 0)},
		{at(8, 0), at(17, 0), at(12, 0), at(12, 30)},
	}
	for _, p := range pairs {
		assert.Equal(t,
			Overlaps(p[0], p[1], p[2], p[3]),
			Overlaps(p[2], p[3], p[0], p[1]),
		)
	}
}

func TestFindConflict(t *testing.T) {
	occupied := []Interval{
		{ID: "a", Start: at(9, 0), End: at(10, 0)},
		{ID: "b", Start: at(14, 0), End: at(15, 0)},
	}

	id, found := FindConflict(occupied, at(9, 30), at(10, 30), "")
	require.True(t, found)
	assert.Equal(t, "a", id)

	_, found = FindConflict(occupied, at(10, 0), at(11, 0), "")
	assert.False(t, found)

	// Excluding an appointment lets it move within its own slot.
	_, found = FindConflict(occupied, at(9, 15), at(9, 45), "a")
	assert.False(t, found)
}

func TestCoveredByWindows(t *testing.T) {
	weekly := Window{Recurrence: RecurrenceWeekly, Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 17 * 60}
	oneOff := Window{Recurrence: RecurrenceOneOff, Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), StartMinute: 18 * 60, EndMinute: 20 * 60}
	windows := []Window{weekly, oneOff}

	assert.True(t, CoveredByWindows(windows, at(9, 0), at(10, 0)))
	assert.True(t, CoveredByWindows(windows, at(18, 30), at(19, 30)))
	// Straddles the gap between the two windows.
	assert.False(t, CoveredByWindows(windows, at(16, 30), at(18, 30)))
	// Before opening.
	assert.False(t, CoveredByWindows(windows, at(8, 0), at(9, 0)))
	// Wrong weekday for the weekly window.
	tuesday := at(10, 0).Add(24 * time.Hour)
	assert.False(t, CoveredByWindows(windows, tuesday, tuesday.Add(time.Hour)))
}

func TestCoveredByWindowsMidnightEnd(t *testing.T) {
	w := Window{Recurrence: RecurrenceWeekly, Weekday: time.Monday, StartMinute: 20 * 60, EndMinute: 24 * 60}
	assert.True(t, CoveredByWindows([]Window{w}, at(22, 0), at(0, 0).Add(24*time.Hour)))
	// Crossing into the next day is never covered.
	assert.False(t, CoveredByWindows([]Window{w}, at(23, 0), at(1, 0).Add(24*time.Hour)))
}

func TestCheckSlot(t *testing.T) {
	windows := []Window{{Recurrence: RecurrenceWeekly, Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 17 * 60}}
	occupied := []Interval{{ID: "a", Start: at(9, 0), End: at(10, 0)}}

	assert.NoError(t, CheckSlot(windows, occupied, at(10, 0), at(11, 0), ""))
	assert.ErrorIs(t, CheckSlot(windows, occupied, at(9, 30), at(10, 30), ""), ErrConflictDetected)
	assert.ErrorIs(t, CheckSlot(windows, occupied, at(7, 0), at(8, 0), ""), ErrOutsideAvailability)
	assert.ErrorIs(t, CheckSlot(windows, occupied, at(11, 0), at(11, 0), ""), ErrInvalidTimeRange)
	assert.ErrorIs(t, CheckSlot(windows, occupied, at(11, 0), at(10, 0), ""), ErrInvalidTimeRange)
}

// CheckSlot must be a pure read: calling it repeatedly with the same inputs
// yields the same verdict.
func TestCheckSlotDeterministic(t *testing.T) {
	windows := []Window{{Recurrence: RecurrenceWeekly, Weekday: time.Monday, StartMinute: 0, EndMinute: 24 * 60}}
	occupied := []Interval{{ID: "a", Start: at(9, 0), End: at(10, 0)}}
	for i := 0; i < 100; i++ {
		require.ErrorIs(t, CheckSlot(windows, occupied, at(9, 30), at(10, 30), ""), ErrConflictDetected)
	}
}
