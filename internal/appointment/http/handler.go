package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/appointment"
	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/pkg/request"
	"github.com/agendaplus/practice-backend/internal/pkg/response"
	"github.com/agendaplus/practice-backend/internal/tenant"
)

type Handler struct {
	service appointment.Service
}

func NewHandler(service appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	filter := appointment.Filter{
		ResourceID: req.ResourceID,
		ClientID:   req.ClientID,
		Status:     req.Status,
		From:       req.From,
		To:         req.To,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	appts, total, err := h.service.List(c.Request.Context(), tc, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AppointmentResponse, len(appts))
	for i, a := range appts {
		items[i] = NewAppointmentResponse(a)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var body CreateAppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	a, err := h.service.Request(c.Request.Context(), tc, appointment.RequestParams{
		ClientID:   body.ClientID,
		ResourceID: body.ResourceID,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewAppointmentResponse(a))
}

func (h *Handler) Get(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), tc, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

// transitionFn adapts the version-guarded service operations so the HTTP
// plumbing is written once.
type transitionFn func(c *gin.Context, tc tenant.Context, id string, version int64) (*appointment.Appointment, error)

func (h *Handler) transition(c *gin.Context, fn transitionFn) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	// Body is optional: no body means version 0, "current state".
	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	a, err := fn(c, tc, uri.ID, body.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, func(c *gin.Context, tc tenant.Context, id string, version int64) (*appointment.Appointment, error) {
		return h.service.Confirm(c.Request.Context(), tc, id, version)
	})
}

func (h *Handler) Start(c *gin.Context) {
	h.transition(c, func(c *gin.Context, tc tenant.Context, id string, version int64) (*appointment.Appointment, error) {
		return h.service.Start(c.Request.Context(), tc, id, version)
	})
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, func(c *gin.Context, tc tenant.Context, id string, version int64) (*appointment.Appointment, error) {
		return h.service.Complete(c.Request.Context(), tc, id, version)
	})
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.transition(c, func(c *gin.Context, tc tenant.Context, id string, version int64) (*appointment.Appointment, error) {
		return h.service.MarkNoShow(c.Request.Context(), tc, id, version)
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body CancelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	a, err := h.service.Cancel(c.Request.Context(), tc, uri.ID, body.Version, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *Handler) Reschedule(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body RescheduleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if !body.StartTime.Before(body.EndTime) {
		response.Error(c, appointment.ErrInvalidTimeRange)
		return
	}

	a, err := h.service.Reschedule(c.Request.Context(), tc, uri.ID, body.Version, body.StartTime, body.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}
