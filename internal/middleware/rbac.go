package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
	"github.com/campushq/announcements-api/pkg/response"
)

// RequireRoles blocks requests whose JWT claims carry none of the given
// roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
