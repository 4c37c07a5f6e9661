package auth

import (
	"net/http"
	"strings"

	"taskchat/internal/envelope"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUserKey is the gin context key holding the authenticated user id.
const ContextUserKey = "user_id"

// RequireAuth verifies the Bearer token and stashes the user id in the
// request context. Downstream handlers never re-validate credentials.
func RequireAuth(jwtService *JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope.Err(envelope.CodeUnauthorized, "missing Authorization header", nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope.Err(envelope.CodeUnauthorized, "Authorization header must be 'Bearer <token>'", nil))
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope.Err(envelope.CodeUnauthorized, "invalid or expired token", nil))
			return
		}

		c.Set(ContextUserKey, claims.UserID)
		c.Next()
	}
}

// UserID extracts the authenticated user id set by RequireAuth.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
