package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/authrouter/authrouter/internal/models"
	"golang.org/x/oauth2"
)

const defaultNaverProfileURL = "https://openapi.naver.com/v1/nid/me"

// maxProfileBytes bounds the profile response read into memory.
const maxProfileBytes = 1 << 20

var naverEndpoint = oauth2.Endpoint{
	AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
	TokenURL:  "https://nid.naver.com/oauth2.0/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NaverConfig configures the Naver adapter. Endpoint, ProfileURL and
// HTTPClient may be left zero to use the public Naver endpoints.
type NaverConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	ProfileURL   string
	HTTPClient   *http.Client
}

// NaverProvider signs users in with Naver Login (plain OAuth 2.0, no ID
// token). The identity id is response.id from the profile API.
type NaverProvider struct {
	conf       oauth2.Config
	profileURL string
	http       *http.Client
}

func NewNaver(cfg NaverConfig) *NaverProvider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = naverEndpoint
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultNaverProfileURL
	}
	return &NaverProvider{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
		},
		profileURL: cfg.ProfileURL,
		http:       defaultHTTPClient(cfg.HTTPClient),
	}
}

func (p *NaverProvider) Name() string { return Naver }

func (p *NaverProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// naverProfile is the /v1/nid/me envelope.
type naverProfile struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID string `json:"id"`
	} `json:"response"`
}

func (p *NaverProvider) Complete(ctx context.Context, cb Callback) (models.Identity, error) {
	if err := cb.check(); err != nil {
		return models.Identity{}, err
	}
	ctx = withClient(ctx, p.http)
	// naver validates state on the token endpoint as well
	tok, err := p.conf.Exchange(ctx, cb.Code, oauth2.SetAuthURLParam("state", cb.State))
	if err != nil {
		return models.Identity{}, fmt.Errorf("naver: token exchange: %w", err)
	}
	id, err := p.fetchProfileID(ctx, tok)
	if err != nil {
		return models.Identity{}, fmt.Errorf("naver: %w", err)
	}
	return models.Identity{ID: id, Provider: Naver}, nil
}

func (p *NaverProvider) fetchProfileID(ctx context.Context, tok *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var prof naverProfile
	if err := json.Unmarshal(body, &prof); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if prof.ResultCode != "00" {
		return "", fmt.Errorf("profile api error %s: %s", prof.ResultCode, prof.Message)
	}
	if prof.Response.ID == "" {
		return "", fmt.Errorf("empty id in profile response")
	}
	return prof.Response.ID, nil
}

var _ Provider = (*NaverProvider)(nil)
