package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/authrouter/authrouter/internal/config"
	"github.com/authrouter/authrouter/internal/database"
	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/providers"
	"github.com/authrouter/authrouter/internal/sessions"
	"github.com/authrouter/authrouter/internal/tokens"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeProvider accepts code "good" and yields a fixed identity.
type fakeProvider struct {
	name string
	id   string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example/" + p.name + "/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Complete(ctx context.Context, cb providers.Callback) (models.Identity, error) {
	if cb.Error != "" {
		return models.Identity{}, providers.ErrProviderDenied
	}
	if cb.Code != "good" {
		return models.Identity{}, errors.New("exchange rejected")
	}
	return models.Identity{ID: p.id, Provider: p.name}, nil
}

// brokenRepo fails every call.
type brokenRepo struct{}

var errStore = errors.New("store unavailable")

func (brokenRepo) GetByID(ctx context.Context, id string) (*models.User, error) { return nil, errStore }
func (brokenRepo) Insert(ctx context.Context, u *models.User) error             { return errStore }
func (brokenRepo) UpdateProfile(ctx context.Context, id, image string) error    { return errStore }

type harness struct {
	engine   *gin.Engine
	cfg      *config.Config
	repo     users.UserRepository
	tokens   *tokens.Manager
	sessions *sessions.Service
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "jwt-secret"
	cfg.JWT.CookieTTL = 7 * 24 * time.Hour
	cfg.Session.Secret = "session-secret"
	cfg.Session.TTL = time.Hour
	cfg.Auth.LandingPath = "/mypage"
	cfg.Auth.FailurePath = "/"
	return cfg
}

func sqliteRepo(t *testing.T) users.UserRepository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "user.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return users.NewSQLiteUserRepository(db)
}

// newHarness wires the handlers the way main does. repo may be nil for a
// fresh SQLite store.
func newHarness(t *testing.T, repo users.UserRepository) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if repo == nil {
		repo = sqliteRepo(t)
	}
	cfg := testConfig()
	tm := tokens.NewManager(cfg.JWT.Secret)
	sSvc := sessions.NewService(sessions.NewMemoryRepository(), cfg.Session.TTL)
	codec := sessions.NewCookieCodec(cfg.Session.Secret)
	uSvc := users.NewService(repo)
	reg := providers.NewRegistry(
		&fakeProvider{name: providers.Naver, id: "naver-123"},
		&fakeProvider{name: providers.Google, id: "google-sub-1"},
		&fakeProvider{name: providers.Apple, id: "001234.apple"},
	)

	r := gin.New()
	r.Use(middleware.SessionMiddleware(sSvc, codec))
	NewAuthHandler(cfg, reg, uSvc, sSvc, codec, tm).Register(r.Group("/"))
	NewProfileHandler(uSvc).Register(r.Group("/"), middleware.AuthMiddleware(tm))

	return &harness{engine: r, cfg: cfg, repo: repo, tokens: tm, sessions: sSvc}
}

var site = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

// browser keeps cookies between requests against the harness engine.
type browser struct {
	t   *testing.T
	h   *harness
	jar *cookiejar.Jar
}

func (h *harness) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, h: h, jar: jar}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.jar.Cookies(site) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.h.engine.ServeHTTP(w, req)
	b.jar.SetCookies(site, w.Result().Cookies())
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

// beginLogin follows /auth/login/<provider> and returns the issued state.
func (b *browser) beginLogin(provider string) string {
	w := b.get("/auth/login/" + provider)
	require.Equal(b.t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(b.t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(b.t, state)
	return state
}

// callback delivers the provider redirect the way each provider sends it.
func (b *browser) callback(provider, code, state string) *httptest.ResponseRecorder {
	form := url.Values{"code": {code}, "state": {state}}
	if provider == providers.Apple {
		req := httptest.NewRequest(http.MethodPost, "/auth/callback/apple", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return b.do(req)
	}
	return b.get("/auth/callback/" + provider + "?" + form.Encode())
}

func (b *browser) login(provider, code string) *httptest.ResponseRecorder {
	return b.callback(provider, code, b.beginLogin(provider))
}

func (b *browser) cookie(name string) string {
	for _, c := range b.jar.Cookies(site) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
