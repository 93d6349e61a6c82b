package http

import (
	"time"

	"github.com/agendaplus/practice-backend/internal/appointment"
	"github.com/agendaplus/practice-backend/internal/pkg/request"
)

// ListAppointmentsRequest defines query parameters for listing appointments.
type ListAppointmentsRequest struct {
	request.ListParams
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	ClientID   string     `form:"client_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=requested confirmed in_progress completed cancelled no_show"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type AppointmentResponse struct {
	ID           string     `json:"id"`
	ResourceID   string     `json:"resource_id"`
	ClientID     string     `json:"client_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	Version      int64      `json:"version"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	RemindedAt   *time.Time `json:"reminded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		ResourceID:   a.ResourceID,
		ClientID:     a.ClientID,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
		Version:      a.Version,
		CancelReason: a.CancelReason,
		RemindedAt:   a.RemindedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type CreateAppointmentRequest struct {
	ClientID   string    `json:"client_id" binding:"required,uuid"`
	ResourceID string    `json:"resource_id" binding:"required,uuid"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

// TransitionRequest carries the optimistic-concurrency token. Version 0 (or
// absent) targets the current state; a non-zero version fails fast with 412
// when the row has moved on.
type TransitionRequest struct {
	Version int64 `json:"version" binding:"omitempty,min=0"`
}

type CancelRequest struct {
	Version int64  `json:"version" binding:"omitempty,min=0"`
	Reason  string `json:"reason" binding:"required"`
}

type RescheduleRequest struct {
	Version   int64     `json:"version" binding:"omitempty,min=0"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}
