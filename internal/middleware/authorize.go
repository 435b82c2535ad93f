package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chaplog/internal/models"
	"chaplog/internal/response"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			response.Abort(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}

		c.Next()
	}
}
