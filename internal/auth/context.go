package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/tenant"
)

// GetTenant returns the authenticated tenant context, or ErrMissingTenant
// when the middleware did not run.
func GetTenant(c *gin.Context) (tenant.Context, error) {
	if v, ok := c.Get(tenantContextKey); ok {
		if tc, ok := v.(tenant.Context); ok {
			return tc, nil
		}
	}
	return tenant.Context{}, tenant.ErrMissingTenant
}
