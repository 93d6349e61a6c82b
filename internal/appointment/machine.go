package appointment

import "github.com/agendaplus/practice-backend/internal/plugin"

// Event is a state-machine trigger. Request is implicit in Create; the rest
// are explicit operations on an existing appointment.
type Event string

const (
	EventConfirm    Event = "confirm"
	EventReschedule Event = "reschedule"
	EventStart      Event = "start"
	EventComplete   Event = "complete"
	EventCancel     Event = "cancel"
	EventNoShow     Event = "mark_no_show"
)

// transitions is the closed table of legal moves. Anything absent is
// ErrInvalidTransition; terminal statuses have no outgoing edges.
var transitions = map[Status]map[Event]Status{
	StatusRequested: {
		EventConfirm:    StatusConfirmed,
		EventReschedule: StatusRequested,
		EventCancel:     StatusCancelled,
	},
	StatusConfirmed: {
		EventReschedule: StatusRequested,
		EventStart:      StatusInProgress,
		EventCancel:     StatusCancelled,
		EventNoShow:     StatusNoShow,
	},
	StatusInProgress: {
		EventComplete: StatusCompleted,
		EventCancel:   StatusCancelled,
	},
}

// next resolves the target status for an event, or ErrInvalidTransition.
func next(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", ErrInvalidTransition
}

// eventTypes maps engine events to the hook types plugins subscribe to.
var eventTypes = map[Event]plugin.EventType{
	EventConfirm:    plugin.EventConfirmed,
	EventReschedule: plugin.EventRescheduled,
	EventStart:      plugin.EventStarted,
	EventComplete:   plugin.EventCompleted,
	EventCancel:     plugin.EventCancelled,
	EventNoShow:     plugin.EventNoShow,
}
