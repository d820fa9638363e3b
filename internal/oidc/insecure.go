package oidc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// unverifiedToken exposes the claims of an ID token whose signature was not checked.
type unverifiedToken struct {
	claims jwt.MapClaims
}

func (t *unverifiedToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier implements TokenVerifier WITHOUT validating signatures,
// issuer or audience. Only wired when ALLOW_INSECURE_TOKEN is set and OIDC
// discovery failed.
type InsecureVerifier struct {
	parser *jwt.Parser
}

func NewInsecureVerifier() *InsecureVerifier {
	return &InsecureVerifier{parser: jwt.NewParser()}
}

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (IDToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := v.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	return &unverifiedToken{claims: claims}, nil
}
