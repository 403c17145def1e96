package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meddoc/clinic-api/pkg/auth"
)

// LockChecker reports whether the practitioner's PIN lock is active.
type LockChecker interface {
	PINEnabled(ctx context.Context) bool
}

// AuthMiddleware enforces the PIN session on mutating routes. When the
// lock is disabled every request passes; when enabled, writes need the
// bearer token issued by the unlock endpoint.
type AuthMiddleware struct {
	tokens auth.TokenService
	lock   LockChecker
}

func NewAuthMiddleware(tokens auth.TokenService, lock LockChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, lock: lock}
}

func (m *AuthMiddleware) RequireUnlocked() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if !m.lock.PINEnabled(c.Request.Context()) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "session token required",
			})
			return
		}
		if err := m.tokens.ValidateToken(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid or expired session token",
			})
			return
		}
		c.Next()
	}
}
