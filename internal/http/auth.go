package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/filmlog/internal/database/users"
)

// TokenAuthMiddleware resolves the caller from a bearer API token. Requests
// without a token run as the default local user; a token that matches no
// user is rejected. Session handling lives outside this service.
func TokenAuthMiddleware(repo *users.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Set(ContextKeyUserID, users.DefaultUserID)
			c.Next()
			return
		}

		user, err := repo.GetUserByToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
