package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/pkg/request"
	"github.com/agendaplus/practice-backend/internal/pkg/response"
	"github.com/agendaplus/practice-backend/internal/resource"
)

type Handler struct {
	service resource.Service
}

func NewHandler(service resource.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req ListResourcesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	resources, total, err := h.service.List(c.Request.Context(), tc, resource.Filter{
		Kind:     req.Kind,
		Active:   req.Active,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ResourceResponse, len(resources))
	for i, res := range resources {
		items[i] = NewResourceResponse(res)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	tc, err := auth.GetTenant(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var body CreateResourceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), tc, resource.CreateRequest{
		Name: body.Name,
		Kind: resource.Kind(body.Kind),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewResourceResponse(res))
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

	res, err := h.service.GetByID(c.Request.Context(), tc, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewResourceResponse(res))
}

func (h *Handler) Update(c *gin.Context) {
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

	var body UpdateResourceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.service.Update(c.Request.Context(), tc, uri.ID, resource.UpdateRequest{Name: body.Name})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewResourceResponse(res))
}

func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
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

	var res *resource.Resource
	if active {
		res, err = h.service.Activate(c.Request.Context(), tc, uri.ID)
	} else {
		res, err = h.service.Deactivate(c.Request.Context(), tc, uri.ID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewResourceResponse(res))
}
