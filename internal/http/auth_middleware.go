package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"footballapp/internal/domain"
	"footballapp/internal/metrics"
)

const authUserKey = "auth_user"

// Authenticator resuelve el usuario dueño de un access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.User, error)
}

// BearerAuthMiddleware exige un access token válido y guarda el usuario en el contexto.
func BearerAuthMiddleware(auth Authenticator, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
			m.AuthFailure("missing_token")
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		token := strings.TrimSpace(header[len("bearer "):])
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			m.AuthFailure("invalid_token")
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// GetAuthUser obtiene el usuario autenticado desde el contexto.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
