package providers

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const AppleIssuer = "https://appleid.apple.com"

var appleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://appleid.apple.com/auth/authorize",
	TokenURL:  "https://appleid.apple.com/auth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// client secrets are minted per exchange; Apple accepts up to six months
const appleClientSecretTTL = 5 * time.Minute

// AppleConfig configures Sign in with Apple. ClientID is the Services ID.
type AppleConfig struct {
	ClientID    string
	TeamID      string
	KeyID       string
	PrivateKey  *ecdsa.PrivateKey
	RedirectURL string
	Endpoint    oauth2.Endpoint
	Verifier    oidc.TokenVerifier
	HTTPClient  *http.Client
}

// AppleProvider signs users in with Apple. Apple has no static client secret:
// each token request carries an ES256 JWT signed with the team's .p8 key.
type AppleProvider struct {
	conf     oauth2.Config
	teamID   string
	keyID    string
	key      *ecdsa.PrivateKey
	verifier oidc.TokenVerifier
	http     *http.Client
	now      func() time.Time
}

func NewApple(cfg AppleConfig) *AppleProvider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = appleEndpoint
	}
	return &AppleProvider{
		conf: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Endpoint:    cfg.Endpoint,
		},
		teamID:   cfg.TeamID,
		keyID:    cfg.KeyID,
		key:      cfg.PrivateKey,
		verifier: cfg.Verifier,
		http:     defaultHTTPClient(cfg.HTTPClient),
		now:      time.Now,
	}
}

// LoadAppleKey reads an AuthKey_<keyid>.p8 file (PKCS#8 EC private key).
func LoadAppleKey(path string) (*ecdsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read apple key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("parse apple key: %w", err)
	}
	return key, nil
}

func (p *AppleProvider) Name() string { return Apple }

// AuthCodeURL asks Apple to POST the callback as a form.
func (p *AppleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func (p *AppleProvider) Complete(ctx context.Context, cb Callback) (models.Identity, error) {
	if err := cb.check(); err != nil {
		return models.Identity{}, err
	}
	secret, err := p.clientSecret()
	if err != nil {
		return models.Identity{}, fmt.Errorf("apple: %w", err)
	}
	conf := p.conf
	conf.ClientSecret = secret
	sub, err := exchangeForSubject(withClient(ctx, p.http), &conf, p.verifier, cb.Code)
	if err != nil {
		return models.Identity{}, fmt.Errorf("apple: %w", err)
	}
	return models.Identity{ID: sub, Provider: Apple}, nil
}

func (p *AppleProvider) clientSecret() (string, error) {
	if p.key == nil {
		return "", fmt.Errorf("client secret: no private key")
	}
	now := p.now()
	claims := jwt.RegisteredClaims{
		Issuer:    p.teamID,
		Subject:   p.conf.ClientID,
		Audience:  jwt.ClaimStrings{AppleIssuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appleClientSecretTTL)),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	jt.Header["kid"] = p.keyID
	s, err := jt.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("client secret: %w", err)
	}
	return s, nil
}

var _ Provider = (*AppleProvider)(nil)
