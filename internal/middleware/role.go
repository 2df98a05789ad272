package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// RequireRole allows only callers holding one of roles. Call after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, ok := UserRole(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !allowed[role] {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
