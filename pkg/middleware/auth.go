package middleware

import (
	"net/http"

	"github.com/authrouter/authrouter/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie carrying the session token.
const TokenCookie = "token"

// UserIDKey is the gin context key holding the verified user id.
const UserIDKey = "userID"

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(raw string) (string, error)
}

// AuthMiddleware returns a Gin middleware that only lets requests carrying a
// valid token cookie through. The verified id is stored under UserIDKey; the
// user row is not loaded.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(TokenCookie)
		if err != nil || raw == "" {
			metrics.GateRejected.WithLabelValues("missing").Inc()
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		id, err := ver.Verify(raw)
		if err != nil {
			metrics.GateRejected.WithLabelValues("invalid").Inc()
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(UserIDKey, id)
		c.Next()
	}
}

// UserID returns the id stored by AuthMiddleware, if any.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
