package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/providers"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProfileRequiresToken(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.repo.Insert(ctx, &models.User{ID: "victim", Provider: providers.Naver}))

	forged, err := h.tokens.Issue("victim")
	require.NoError(t, err)

	for name, cookie := range map[string]string{
		"no cookie": "",
		"garbage":   "not-a-token",
		"truncated": forged[:len(forged)-4],
	} {
		t.Run(name, func(t *testing.T) {
			b := h.browser(t)
			if cookie != "" {
				b.jar.SetCookies(site, []*http.Cookie{{Name: middleware.TokenCookie, Value: cookie}})
			}
			w := b.postJSON("/api/profile/set", `{"clientId":"victim","image":"x.png"}`)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			u, err := h.repo.GetByID(ctx, "victim")
			require.NoError(t, err)
			assert.Nil(t, u.Profile)
		})
	}
}

func TestSetProfileAnyClientID(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.repo.Insert(ctx, &models.User{ID: "someone-else", Provider: providers.Google}))

	b := h.browser(t)
	require.Equal(t, "/mypage", b.login(providers.Naver, "good").Header().Get("Location"))

	w := b.postJSON("/api/profile/set", `{"clientId":"someone-else","image":"y.png"}`)
	require.Equal(t, http.StatusOK, w.Code)

	u, err := h.repo.GetByID(ctx, "someone-else")
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.Equal(t, "y.png", *u.Profile)
}

func TestSetProfileUnknownClientIDStillOK(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.login(providers.Naver, "good")

	w := b.postJSON("/api/profile/set", `{"clientId":"nobody","image":"z.png"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetProfileBadBody(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.login(providers.Naver, "good")

	assert.Equal(t, http.StatusBadRequest, b.postJSON("/api/profile/set", `{"image":`).Code)
	assert.Equal(t, http.StatusBadRequest, b.postJSON("/api/profile/set", `{"image":"a.png"}`).Code)
}

func TestSetProfileStoreError(t *testing.T) {
	h := newHarness(t, brokenRepo{})
	tok, err := h.tokens.Issue("u1")
	require.NoError(t, err)

	b := h.browser(t)
	b.jar.SetCookies(site, []*http.Cookie{{Name: middleware.TokenCookie, Value: tok}})
	w := b.postJSON("/api/profile/set", `{"clientId":"u1","image":"a.png"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentIdentity(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	w := b.get("/api/auth")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":401}`, w.Body.String())

	b.login(providers.Apple, "good")
	w = b.get("/api/auth")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "001234.apple", got["id"])
	assert.Equal(t, providers.Apple, got["provider"])
	assert.EqualValues(t, 200, got["status"])
	assert.Equal(t, "default", got["profile"])

	require.Equal(t, http.StatusOK, b.postJSON("/api/profile/set", `{"clientId":"001234.apple","image":"me.png"}`).Code)
	w = b.get("/api/auth")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "me.png", got["profile"])
}

func TestCurrentIdentityIgnoresTokenCookie(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.repo.Insert(context.Background(), &models.User{ID: "u1", Provider: providers.Naver}))
	tok, err := h.tokens.Issue("u1")
	require.NoError(t, err)

	b := h.browser(t)
	b.jar.SetCookies(site, []*http.Cookie{{Name: middleware.TokenCookie, Value: tok}})
	assert.JSONEq(t, `{"status":401}`, b.get("/api/auth").Body.String())
}

// flakyRepo delegates to a real repository until fail or missing is set.
type flakyRepo struct {
	users.UserRepository
	fail    bool
	missing bool
}

func (r *flakyRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.fail {
		return nil, errStore
	}
	if r.missing {
		return nil, nil
	}
	return r.UserRepository.GetByID(ctx, id)
}

func TestCurrentIdentityStoreError(t *testing.T) {
	repo := &flakyRepo{UserRepository: sqliteRepo(t)}
	h := newHarness(t, repo)
	b := h.browser(t)
	require.Equal(t, "/mypage", b.login(providers.Google, "good").Header().Get("Location"))

	repo.fail = true
	w := b.get("/api/auth")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentIdentityRowGone(t *testing.T) {
	repo := &flakyRepo{UserRepository: sqliteRepo(t)}
	h := newHarness(t, repo)
	b := h.browser(t)
	require.Equal(t, "/mypage", b.login(providers.Naver, "good").Header().Get("Location"))

	repo.missing = true
	w := b.get("/api/auth")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"naver-123","provider":"naver","status":200,"profile":"default"}`, w.Body.String())
}
