package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wetty/chat-backend/internal/auth"
)

// Context keys for values the auth middleware stores per request.
const (
	ContextKeyUID      = "uid"
	ContextKeyUsername = "username"
)

// AuthMiddleware validates the bearer token and stores the caller's uid in
// the request context. Requests without a valid token never reach a
// handler.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyUID, claims.UID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// GetUID returns the authenticated caller's uid, or 0 when the middleware
// did not run (0 is never a valid uid, so downstream checks fail closed).
func GetUID(c *gin.Context) int32 {
	val, exists := c.Get(ContextKeyUID)
	if !exists {
		return 0
	}
	uid, ok := val.(int32)
	if !ok {
		return 0
	}
	return uid
}
