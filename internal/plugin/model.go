package plugin

import (
	"context"
	"net/http"
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
)

var (
	ErrVetoed          = apperror.New(http.StatusUnprocessableEntity, "transition vetoed by plugin")
	ErrTimeout         = apperror.New(http.StatusGatewayTimeout, "plugin guard timed out")
	ErrNotRegistered   = apperror.New(http.StatusNotFound, "plugin registration not found")
	ErrUnknownPlugin   = apperror.New(http.StatusBadRequest, "unknown plugin id")
	ErrBadCapability   = apperror.New(http.StatusBadRequest, "plugin does not implement the requested capability")
	ErrNoEventTypes    = apperror.New(http.StatusBadRequest, "at least one event type is required")
	ErrUnknownEvent    = apperror.New(http.StatusBadRequest, "unknown event type")
)

type Capability string

const (
	CapabilityGuard    Capability = "guard"
	CapabilityObserver Capability = "observer"
)

// EventType names a scheduling transition plugins can subscribe to.
type EventType string

const (
	EventRequested   EventType = "appointment.requested"
	EventConfirmed   EventType = "appointment.confirmed"
	EventRescheduled EventType = "appointment.rescheduled"
	EventStarted     EventType = "appointment.started"
	EventCompleted   EventType = "appointment.completed"
	EventCancelled   EventType = "appointment.cancelled"
	EventNoShow      EventType = "appointment.no_show"
)

// AllEventTypes lists every subscribable transition.
var AllEventTypes = []EventType{
	EventRequested, EventConfirmed, EventRescheduled,
	EventStarted, EventCompleted, EventCancelled, EventNoShow,
}

func ValidEventType(t EventType) bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is the domain event emitted for every committed transition. Guards
// receive it before commit (as the proposed transition); observers after.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	TenantID      string    `json:"tenant_id"`
	AppointmentID string    `json:"appointment_id"`
	ResourceID    string    `json:"resource_id"`
	ClientID      string    `json:"client_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Guard is the veto-capable capability. It runs synchronously inside the
// transition's critical section, before commit. A non-empty reason vetoes
// the transition; err reports the guard's own failure, which is also
// fail-closed.
type Guard interface {
	PluginID() string
	Check(ctx context.Context, ev Event) (reason string, err error)
}

// Observer is the side-effecting capability. It runs after commit, off the
// caller's path; failures are logged and never affect the committed state.
type Observer interface {
	PluginID() string
	Notify(ctx context.Context, ev Event) error
}

// Registration binds a plugin to event types within a tenant scope.
// TenantID "" means global.
type Registration struct {
	ID         string
	PluginID   string
	TenantID   string
	Capability Capability
	Events     []EventType
	Priority   int
	CreatedAt  time.Time
}

func (r Registration) subscribed(tenantID string, t EventType) bool {
	if r.TenantID != "" && r.TenantID != tenantID {
		return false
	}
	for _, e := range r.Events {
		if e == t {
			return true
		}
	}
	return false
}
