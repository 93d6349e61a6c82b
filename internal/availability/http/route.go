package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/availability")

	group.Use(authMiddleware)
	{
		group.POST("/windows", h.Create)
		group.GET("/resources/:id/windows", h.ListForResource)
		group.DELETE("/windows/:id", h.Delete)
	}
}
