package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hadirku/internal/session"
)

// SessionKey is the gin context key holding the live *session.Session.
const SessionKey = "session"

// RequireSession enforces a bearer JWT whose session is still live. Idle
// or logged-out sessions are rejected even when the JWT itself has not
// expired yet.
func RequireSession(signingKey, issuer string, sessions session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		s, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if s == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		c.Set(SessionKey, s)
		c.Next()
	}
}

// Current returns the session attached by RequireSession, nil outside it.
func Current(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
