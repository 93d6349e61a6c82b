package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/availability"
	"github.com/agendaplus/practice-backend/internal/pkg/request"
	"github.com/agendaplus/practice-backend/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var body CreateWindowRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	w, err := h.service.Create(c.Request.Context(), tc, body.toService())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewWindowResponse(w))
}

func (h *Handler) ListForResource(c *gin.Context) {
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

	windows, err := h.service.ListForResource(c.Request.Context(), tc, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]WindowResponse, len(windows))
	for i, w := range windows {
		items[i] = NewWindowResponse(w)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Delete(c *gin.Context) {
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

	if err := h.service.Delete(c.Request.Context(), tc, uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
