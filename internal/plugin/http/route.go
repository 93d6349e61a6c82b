package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/plugins")

	group.Use(authMiddleware)
	{
		group.GET("/registrations", h.List)
		group.POST("/registrations", h.Register)
		group.DELETE("/registrations/:id", h.Unregister)
	}
}
