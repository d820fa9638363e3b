package providers

import (
	"context"

	"github.com/authrouter/authrouter/internal/config"
	"github.com/authrouter/authrouter/internal/oidc"
	"github.com/authrouter/authrouter/pkg/logger"
	"golang.org/x/oauth2"
)

// FromConfig builds adapters for every provider with complete credentials.
// A provider whose discovery or key loading fails is logged and skipped so
// the remaining logins keep working.
func FromConfig(ctx context.Context, cfg *config.Config) *Registry {
	reg := NewRegistry()

	if cfg.Naver.Enabled() {
		reg.Add(NewNaver(NaverConfig{
			ClientID:     cfg.Naver.ClientID,
			ClientSecret: cfg.Naver.ClientSecret,
			RedirectURL:  cfg.CallbackFor(Naver),
		}))
	}

	if cfg.Google.Enabled() {
		ver, ep, err := discover(ctx, GoogleIssuer, cfg.Google.ClientID, googleEndpoint, cfg.Auth.AllowInsecureToken)
		if err != nil {
			logger.Warnf("google login disabled: %v", err)
		} else {
			reg.Add(NewGoogle(GoogleConfig{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.CallbackFor(Google),
				Endpoint:     ep,
				Verifier:     ver,
			}))
		}
	}

	if cfg.Apple.Enabled() {
		key, err := LoadAppleKey(cfg.Apple.KeyFile)
		if err != nil {
			logger.Warnf("apple login disabled: %v", err)
		} else if ver, ep, err := discover(ctx, AppleIssuer, cfg.Apple.ClientID, appleEndpoint, cfg.Auth.AllowInsecureToken); err != nil {
			logger.Warnf("apple login disabled: %v", err)
		} else {
			reg.Add(NewApple(AppleConfig{
				ClientID:    cfg.Apple.ClientID,
				TeamID:      cfg.Apple.TeamID,
				KeyID:       cfg.Apple.KeyID,
				PrivateKey:  key,
				RedirectURL: cfg.CallbackFor(Apple),
				Endpoint:    ep,
				Verifier:    ver,
			}))
		}
	}

	logger.Infof("login providers configured: %v", reg.Names())
	return reg
}

// discover resolves the issuer's endpoints and signing keys. With
// allowInsecure it falls back to static endpoints and unsigned claim parsing.
func discover(ctx context.Context, issuer, clientID string, fallback oauth2.Endpoint, allowInsecure bool) (oidc.TokenVerifier, oauth2.Endpoint, error) {
	ver, err := oidc.NewVerifier(ctx, issuer, clientID)
	if err == nil {
		ep := ver.Endpoint()
		ep.AuthStyle = oauth2.AuthStyleInParams
		return ver, ep, nil
	}
	if allowInsecure {
		logger.Warnf("enabling insecure OIDC verifier for %s (integration mode): %v", issuer, err)
		return oidc.NewInsecureVerifier(), fallback, nil
	}
	return nil, oauth2.Endpoint{}, err
}
