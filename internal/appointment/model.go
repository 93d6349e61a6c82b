package appointment

import (
	"net/http"
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
	"github.com/agendaplus/practice-backend/internal/schedule"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "appointment not found")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "transition not allowed from current status")
	ErrStaleVersion      = apperror.New(http.StatusPreconditionFailed, "appointment was modified concurrently, re-read and retry")
	ErrResourceInactive  = apperror.New(http.StatusUnprocessableEntity, "resource is deactivated and rejects new bookings")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "scheduling role required")
	ErrReasonRequired    = apperror.New(http.StatusBadRequest, "cancellation reason is required")
	ErrTooEarlyToStart   = apperror.New(http.StatusUnprocessableEntity, "appointment cannot start this far before its slot")
	ErrNotElapsed        = apperror.New(http.StatusUnprocessableEntity, "appointment has not started yet")

	// Re-exported so callers matching engine results need one package.
	ErrConflictDetected    = schedule.ErrConflictDetected
	ErrOutsideAvailability = schedule.ErrOutsideAvailability
	ErrInvalidTimeRange    = schedule.ErrInvalidTimeRange
)

type Status string

const (
	StatusRequested  Status = "requested"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Terminal reports whether the status ends the appointment lifecycle.
// Appointments are never deleted, only moved to a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a versioned, tenant-scoped booking row. Version is the
// optimistic-concurrency token: every committed transition increments it,
// and writers racing on the same version lose with ErrStaleVersion.
type Appointment struct {
	ID           string
	TenantID     string
	ResourceID   string
	ClientID     string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	Version      int64
	CancelReason string
	RemindedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter defines parameters for listing appointments. TenantID is always
// forced from the caller's context, never from input.
type Filter struct {
	TenantID   string
	ResourceID string
	ClientID   string
	Status     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
