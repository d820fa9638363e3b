package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/authrouter/authrouter/internal/config"
	"github.com/authrouter/authrouter/internal/providers"
	"github.com/authrouter/authrouter/internal/sessions"
	"github.com/authrouter/authrouter/internal/tokens"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/authrouter/authrouter/pkg/metrics"
	"github.com/authrouter/authrouter/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// login outcomes recorded in metrics.LoginResults
const (
	outcomeSuccess       = "success"
	outcomeStateMismatch = "state_mismatch"
	outcomeProviderError = "provider_error"
	outcomeStoreError    = "store_error"
	outcomeTokenError    = "token_error"
)

// AuthHandler drives the provider login flows: redirect to the consent
// screen, complete the callback, record the user and hand out the token cookie.
type AuthHandler struct {
	cfg         *config.Config
	registry    *providers.Registry
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	cookies     *sessions.CookieCodec
	tokens      *tokens.Manager
}

func NewAuthHandler(cfg *config.Config, reg *providers.Registry, u *users.Service, s *sessions.Service, codec *sessions.CookieCodec, tm *tokens.Manager) *AuthHandler {
	return &AuthHandler{cfg: cfg, registry: reg, usersSvc: u, sessionsSvc: s, cookies: codec, tokens: tm}
}

// Register routes under /auth plus /logout. Only configured providers get routes.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	for _, name := range h.registry.Names() {
		a.GET("/login/"+name, h.Login(name))
		if name == providers.Apple {
			// apple answers with response_mode=form_post
			a.POST("/callback/apple", h.Callback(name))
			a.GET("/callback/apple", h.appleLanding)
			continue
		}
		a.GET("/callback/"+name, h.Callback(name))
	}
	rg.GET("/logout", h.Logout)
}

// Login stores a fresh state in the caller's session and redirects to the
// provider consent screen.
func (h *AuthHandler) Login(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.registry.Get(name)
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		ctx := c.Request.Context()
		sess := middleware.CurrentSession(c)
		if sess == nil {
			var err error
			if sess, err = h.sessionsSvc.Start(); err != nil {
				logger.Errorf("login %s: start session: %v", name, err)
				c.Redirect(http.StatusFound, h.cfg.Auth.FailurePath)
				return
			}
		}
		state, err := h.sessionsSvc.NewState(ctx, sess)
		if err != nil {
			logger.Errorf("login %s: save session: %v", name, err)
			c.Redirect(http.StatusFound, h.cfg.Auth.FailurePath)
			return
		}
		if err := h.writeSessionCookie(c, sess); err != nil {
			logger.Errorf("login %s: session cookie: %v", name, err)
			c.Redirect(http.StatusFound, h.cfg.Auth.FailurePath)
			return
		}
		c.Redirect(http.StatusFound, p.AuthCodeURL(state))
	}
}

// Callback completes a provider login.
func (h *AuthHandler) Callback(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.registry.Get(name)
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		ctx := c.Request.Context()
		cb := providers.CallbackFromRequest(c.Request)

		sess := middleware.CurrentSession(c)
		if sess == nil || !stateMatches(sess.OAuthState, cb.State) {
			h.fail(c, name, outcomeStateMismatch, providers.ErrStateMismatch)
			return
		}
		// state is single use whatever the outcome
		sess.OAuthState = ""
		if err := h.sessionsSvc.Save(ctx, sess); err != nil {
			logger.Warnf("callback %s: clear state: %v", name, err)
		}

		ident, err := p.Complete(ctx, cb)
		if err != nil {
			h.fail(c, name, outcomeProviderError, err)
			return
		}

		created, err := h.usersSvc.EnsureUser(ctx, ident)
		if err != nil {
			h.fail(c, name, outcomeStoreError, err)
			return
		}
		if created {
			metrics.UsersCreated.WithLabelValues(name).Inc()
			logger.Infof("created user for provider %s", name)
		}

		tok, err := h.tokens.Issue(ident.ID)
		if err != nil {
			h.fail(c, name, outcomeTokenError, err)
			return
		}

		// new session id on sign-in; the pre-login id was visible to the provider round trip
		next, err := h.sessionsSvc.Start()
		if err == nil {
			err = h.sessionsSvc.SetUser(ctx, next, ident)
		}
		if err == nil {
			err = h.writeSessionCookie(c, next)
		}
		if err != nil {
			logger.Warnf("callback %s: session user not stored: %v", name, err)
		} else if err := h.sessionsSvc.Destroy(ctx, sess.ID); err != nil {
			logger.Warnf("callback %s: drop pre-login session: %v", name, err)
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, tok, int(h.cfg.JWT.CookieTTL.Seconds()), "/", "", h.cfg.Session.CookieSecure, true)
		metrics.LoginResults.WithLabelValues(name, outcomeSuccess).Inc()
		c.Redirect(http.StatusFound, h.cfg.Auth.LandingPath)
	}
}

// appleLanding answers a plain GET on the apple callback path.
func (h *AuthHandler) appleLanding(c *gin.Context) {
	c.Redirect(http.StatusFound, h.cfg.Auth.LandingPath)
}

// Logout destroys the framework session. The token cookie is left as is and
// stays valid until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sess := middleware.CurrentSession(c); sess != nil {
		if err := h.sessionsSvc.Destroy(c.Request.Context(), sess.ID); err != nil {
			logger.Errorf("logout: %v", err)
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}
	c.SetCookie(sessions.CookieName, "", -1, "/", "", h.cfg.Session.CookieSecure, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) fail(c *gin.Context, name, outcome string, err error) {
	metrics.LoginResults.WithLabelValues(name, outcome).Inc()
	if errors.Is(err, providers.ErrProviderDenied) {
		logger.Infof("login %s: %v", name, err)
	} else {
		logger.Warnf("login %s failed (%s): %v", name, outcome, err)
	}
	c.Redirect(http.StatusFound, h.cfg.Auth.FailurePath)
}

// writeSessionCookie sets the signed sid cookie. Apple posts its callback
// cross-site, so secure deployments need SameSite=None for the cookie to
// come back with it.
func (h *AuthHandler) writeSessionCookie(c *gin.Context, sess *sessions.Session) error {
	v, err := h.cookies.Encode(sess.ID, sess.ExpiresAt)
	if err != nil {
		return err
	}
	if h.cfg.Session.CookieSecure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(sessions.CookieName, v, int(h.sessionsSvc.TTL().Seconds()), "/", "", h.cfg.Session.CookieSecure, true)
	return nil
}

func stateMatches(want, got string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
