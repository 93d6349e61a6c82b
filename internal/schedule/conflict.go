// Package schedule holds the pure slot-validation logic used by the
// appointment engine. Nothing here touches storage or the clock, so every
// function is deterministic for a given input.
package schedule

import (
	"net/http"
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
)

var (
	ErrConflictDetected    = apperror.New(http.StatusConflict, "time slot already booked")
	ErrOutsideAvailability = apperror.New(http.StatusUnprocessableEntity, "requested time is outside resource availability")
	ErrInvalidTimeRange    = apperror.New(http.StatusBadRequest, "start time must be before end time")
)

// Interval is an occupied half-open slot [Start, End) on a resource.
type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Recurrence of an availability window.
type Recurrence string

const (
	RecurrenceWeekly Recurrence = "weekly"
	RecurrenceOneOff Recurrence = "one_off"
)

// Window describes when a resource may be booked. Weekly windows match a
// weekday, one-off windows match a calendar date. Start/End are minutes
// since midnight, evaluated in UTC.
type Window struct {
	Recurrence  Recurrence
	Weekday     time.Weekday
	Date        time.Time
	StartMinute int
	EndMinute   int
}

// Overlaps reports whether the half-open intervals [a1,a2) and [b1,b2)
// intersect: a1 < b2 && b1 < a2. Symmetric in its two arguments.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// FindConflict returns the ID of the first occupied interval intersecting
// [start, end), skipping excludeID (used when rescheduling an appointment
// against its own current slot).
func FindConflict(occupied []Interval, start, end time.Time, excludeID string) (string, bool) {
	for _, iv := range occupied {
		if excludeID != "" && iv.ID == excludeID {
			continue
		}
		if Overlaps(start, end, iv.Start, iv.End) {
			return iv.ID, true
		}
	}
	return "", false
}

// covers reports whether the window admits [start, end) entirely. The
// interval must fit inside the single calendar day the window applies to;
// an end exactly at the following midnight counts as minute 1440.
func (w Window) covers(start, end time.Time) bool {
	start, end = start.UTC(), end.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if end.After(day.Add(24 * time.Hour)) {
		return false
	}

	switch w.Recurrence {
	case RecurrenceWeekly:
		if start.Weekday() != w.Weekday {
			return false
		}
	case RecurrenceOneOff:
		d := w.Date.UTC()
		if d.Year() != day.Year() || d.YearDay() != day.YearDay() {
			return false
		}
	default:
		return false
	}

	startMin := int(start.Sub(day) / time.Minute)
	endMin := int(end.Sub(day) / time.Minute)
	return w.StartMinute <= startMin && endMin <= w.EndMinute
}

// CoveredByWindows reports whether at least one window admits the whole of
// [start, end).
func CoveredByWindows(windows []Window, start, end time.Time) bool {
	for _, w := range windows {
		if w.covers(start, end) {
			return true
		}
	}
	return false
}

// CheckSlot validates a requested slot against the resource's availability
// windows and its currently occupied intervals. It returns
// ErrOutsideAvailability or ErrConflictDetected as plain negative results.
func CheckSlot(windows []Window, occupied []Interval, start, end time.Time, excludeID string) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if !CoveredByWindows(windows, start, end) {
		return ErrOutsideAvailability
	}
	if _, found := FindConflict(occupied, start, end, excludeID); found {
		return ErrConflictDetected
	}
	return nil
}
