package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agendaplus/practice-backend/internal/tenant"
)

const tenantContextKey = "tenantContext"

// AuthRequired is a Gin middleware that validates JWT from
// Authorization: Bearer <token> and establishes the tenant context.
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid Authorization header format",
			})
			return
		}

		claims, err := jwtManager.ParseAndValidate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		tc, err := tenant.New(claims.TenantID, claims.Subject, tenant.Role(claims.Role))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token carries no tenant",
			})
			return
		}

		c.Set(tenantContextKey, tc)
		c.Next()
	}
}
