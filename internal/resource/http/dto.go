package http

import (
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/request"
	"github.com/agendaplus/practice-backend/internal/resource"
)

type ListResourcesRequest struct {
	request.ListParams
	Kind   string `form:"kind" binding:"omitempty,oneof=professional room equipment"`
	Active *bool  `form:"active"`
}

type ResourceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewResourceResponse(res *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:        res.ID,
		Name:      res.Name,
		Kind:      string(res.Kind),
		Active:    res.Active,
		CreatedAt: res.CreatedAt,
	}
}

type CreateResourceRequest struct {
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=professional room equipment"`
}

type UpdateResourceRequest struct {
	Name *string `json:"name"`
}
