package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chaplog/internal/models"
	"chaplog/internal/response"
	"chaplog/internal/security"
	"chaplog/internal/service"
)

const (
	currentUserKey = "current_user"
	claimsKey      = "access_claims"
)

type TokenParser interface {
	Parse(token string) (*security.AccessClaims, error)
}

type UserLoader interface {
	CurrentUser(ctx context.Context, userID string) (models.User, error)
}

// Auth requires a valid bearer token whose subject still exists.
func Auth(tokens TokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}

		c.Set(claimsKey, *claims)
		c.Set(currentUserKey, user)

		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
