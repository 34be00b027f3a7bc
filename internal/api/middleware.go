package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/identity"
)

// RequestIDMiddleware ensures every request has a correlation/request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
	}
}

// AuthMiddleware gates the message surface behind a bearer token checked by
// the identity provider.
func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			session, err := provider.ValidateToken(c.Request.Context(), token)
			if err == nil {
				c.Set("session", session)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// SessionFrom returns the authenticated session attached by AuthMiddleware.
func SessionFrom(c *gin.Context) *internal.AuthSession {
	if v, ok := c.Get("session"); ok {
		if session, ok := v.(*internal.AuthSession); ok {
			return session
		}
	}
	return nil
}
