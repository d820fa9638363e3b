package middleware

import (
	"github.com/authrouter/authrouter/internal/sessions"
	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the loaded *sessions.Session.
const SessionKey = "session"

// SessionMiddleware loads the session named by the signed sid cookie into the
// request context. Requests without a usable cookie proceed with no session;
// sessions are created by the handlers that need one.
func SessionMiddleware(svc *sessions.Service, codec *sessions.CookieCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(sessions.CookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		sid, err := codec.Decode(raw)
		if err != nil {
			logger.Debugf("ignoring session cookie: %v", err)
			c.Next()
			return
		}
		sess, err := svc.Load(c.Request.Context(), sid)
		if err != nil {
			logger.Warnf("session load failed: %v", err)
		} else if sess != nil {
			c.Set(SessionKey, sess)
		}
		c.Next()
	}
}

// CurrentSession returns the session loaded by SessionMiddleware, or nil.
func CurrentSession(c *gin.Context) *sessions.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*sessions.Session)
	return s
}
