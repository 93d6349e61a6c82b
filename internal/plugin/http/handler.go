package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/pkg/request"
	"github.com/agendaplus/practice-backend/internal/pkg/response"
	"github.com/agendaplus/practice-backend/internal/plugin"
)

type Handler struct {
	service plugin.Service
}

func NewHandler(service plugin.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	regs, err := h.service.List(c.Request.Context(), tc)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RegistrationResponse, len(regs))
	for i, reg := range regs {
		items[i] = NewRegistrationResponse(reg)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Register(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var body RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	reg, err := h.service.Register(c.Request.Context(), tc, body.toService())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRegistrationResponse(*reg))
}

func (h *Handler) Unregister(c *gin.Context) {
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

	if err := h.service.Unregister(c.Request.Context(), tc, uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
