package availability

import (
	"net/http"
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
	"github.com/agendaplus/practice-backend/internal/schedule"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "availability window not found")
	ErrInvalidRecurrence = apperror.New(http.StatusBadRequest, "recurrence must be weekly or one_off")
	ErrInvalidMinutes    = apperror.New(http.StatusBadRequest, "window minutes must satisfy 0 <= start < end <= 1440")
	ErrWeekdayRequired   = apperror.New(http.StatusBadRequest, "weekly windows require a weekday")
	ErrDateRequired      = apperror.New(http.StatusBadRequest, "one_off windows require a date")
)

// Window defines when a resource may be booked. The union of a resource's
// windows, minus its non-terminal appointments, is its free capacity.
type Window struct {
	ID          string
	TenantID    string
	ResourceID  string
	Recurrence  schedule.Recurrence
	Weekday     *time.Weekday // weekly windows
	Date        *time.Time    // one_off windows
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
}

// AsSchedule converts the row into the pure detector's window shape.
func (w *Window) AsSchedule() schedule.Window {
	sw := schedule.Window{
		Recurrence:  w.Recurrence,
		StartMinute: w.StartMinute,
		EndMinute:   w.EndMinute,
	}
	if w.Weekday != nil {
		sw.Weekday = *w.Weekday
	}
	if w.Date != nil {
		sw.Date = *w.Date
	}
	return sw
}
