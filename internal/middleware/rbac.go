package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/response"
)

// RequireRoles blocks requests whose resolved role is not in the allowed set.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireElevated restricts a route to supervisor and admin roles.
func RequireElevated() gin.HandlerFunc {
	return RequireRoles(models.ElevatedRoles...)
}
