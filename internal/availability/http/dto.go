package http

import (
	"time"

	"github.com/agendaplus/practice-backend/internal/availability"
	"github.com/agendaplus/practice-backend/internal/schedule"
)

type WindowResponse struct {
	ID          string     `json:"id"`
	ResourceID  string     `json:"resource_id"`
	Recurrence  string     `json:"recurrence"`
	Weekday     *string    `json:"weekday,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	StartMinute int        `json:"start_minute"`
	EndMinute   int        `json:"end_minute"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewWindowResponse(w *availability.Window) WindowResponse {
	resp := WindowResponse{
		ID:          w.ID,
		ResourceID:  w.ResourceID,
		Recurrence:  string(w.Recurrence),
		Date:        w.Date,
		StartMinute: w.StartMinute,
		EndMinute:   w.EndMinute,
		CreatedAt:   w.CreatedAt,
	}
	if w.Weekday != nil {
		d := w.Weekday.String()
		resp.Weekday = &d
	}
	return resp
}

type CreateWindowRequest struct {
	ResourceID  string     `json:"resource_id" binding:"required,uuid"`
	Recurrence  string     `json:"recurrence" binding:"required,oneof=weekly one_off"`
	Weekday     *int       `json:"weekday" binding:"omitempty,min=0,max=6"`
	Date        *time.Time `json:"date"`
	StartMinute int        `json:"start_minute" binding:"min=0,max=1439"`
	EndMinute   int        `json:"end_minute" binding:"required,min=1,max=1440"`
}

func (r *CreateWindowRequest) toService() availability.CreateRequest {
	req := availability.CreateRequest{
		ResourceID:  r.ResourceID,
		Recurrence:  schedule.Recurrence(r.Recurrence),
		Date:        r.Date,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
	}
	if r.Weekday != nil {
		d := time.Weekday(*r.Weekday)
		req.Weekday = &d
	}
	return req
}
