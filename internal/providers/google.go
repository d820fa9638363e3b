package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/oidc"
	"golang.org/x/oauth2"
)

const GoogleIssuer = "https://accounts.google.com"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// GoogleConfig configures the Google adapter. Endpoint and HTTPClient may be
// left zero to use the public Google endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	Verifier     oidc.TokenVerifier
	HTTPClient   *http.Client
}

// GoogleProvider signs users in with Google OpenID Connect. The identity id
// is the verified ID token subject.
type GoogleProvider struct {
	conf     oauth2.Config
	verifier oidc.TokenVerifier
	http     *http.Client
}

func NewGoogle(cfg GoogleConfig) *GoogleProvider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = googleEndpoint
	}
	return &GoogleProvider{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"openid", "profile"},
		},
		verifier: cfg.Verifier,
		http:     defaultHTTPClient(cfg.HTTPClient),
	}
}

func (p *GoogleProvider) Name() string { return Google }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *GoogleProvider) Complete(ctx context.Context, cb Callback) (models.Identity, error) {
	if err := cb.check(); err != nil {
		return models.Identity{}, err
	}
	sub, err := exchangeForSubject(withClient(ctx, p.http), &p.conf, p.verifier, cb.Code)
	if err != nil {
		return models.Identity{}, fmt.Errorf("google: %w", err)
	}
	return models.Identity{ID: sub, Provider: Google}, nil
}

// exchangeForSubject trades code for tokens, verifies the returned ID token
// and returns its subject claim.
func exchangeForSubject(ctx context.Context, conf *oauth2.Config, verifier oidc.TokenVerifier, code string, opts ...oauth2.AuthCodeOption) (string, error) {
	tok, err := conf.Exchange(ctx, code, opts...)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return "", fmt.Errorf("token response has no id_token")
	}
	idt, err := verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}
	var claims oidc.SubjectClaims
	if err := idt.Claims(&claims); err != nil {
		return "", fmt.Errorf("id_token claims: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("id_token has empty sub")
	}
	return claims.Subject, nil
}

var _ Provider = (*GoogleProvider)(nil)
