package http

import (
	"time"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

type RegistrationResponse struct {
	ID         string    `json:"id"`
	PluginID   string    `json:"plugin_id"`
	Scope      string    `json:"scope"`
	Capability string    `json:"capability"`
	Events     []string  `json:"events"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewRegistrationResponse(reg plugin.Registration) RegistrationResponse {
	scope := "tenant"
	if reg.TenantID == "" {
		scope = "global"
	}
	events := make([]string, len(reg.Events))
	for i, e := range reg.Events {
		events[i] = string(e)
	}
	return RegistrationResponse{
		ID:         reg.ID,
		PluginID:   reg.PluginID,
		Scope:      scope,
		Capability: string(reg.Capability),
		Events:     events,
		Priority:   reg.Priority,
		CreatedAt:  reg.CreatedAt,
	}
}

type RegisterRequest struct {
	PluginID   string   `json:"plugin_id" binding:"required"`
	Capability string   `json:"capability" binding:"required,oneof=guard observer"`
	Events     []string `json:"events" binding:"required,min=1"`
	Priority   int      `json:"priority"`
}

func (r *RegisterRequest) toService() plugin.RegisterRequest {
	events := make([]plugin.EventType, len(r.Events))
	for i, e := range r.Events {
		events[i] = plugin.EventType(e)
	}
	return plugin.RegisterRequest{
		PluginID:   r.PluginID,
		Capability: plugin.Capability(r.Capability),
		Events:     events,
		Priority:   r.Priority,
	}
}
