package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/appointments")

	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.POST("/:id/confirm", h.Confirm)
		group.POST("/:id/reschedule", h.Reschedule)
		group.POST("/:id/start", h.Start)
		group.POST("/:id/complete", h.Complete)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/no-show", h.MarkNoShow)
	}
}
