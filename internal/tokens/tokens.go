package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure. Missing,
// malformed, tampered and wrongly signed tokens are not distinguished.
var ErrInvalidToken = errors.New("invalid session token")

// ErrNoSecret is returned by Issue when the manager has no signing key.
var ErrNoSecret = errors.New("session token secret is not set")

// Manager issues and verifies session tokens. The token carries only the
// user id and no exp claim: its lifetime is the cookie max-age.
type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Issue signs a token embedding id. Output is deterministic for a given
// secret and id.
func (m *Manager) Issue(id string) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoSecret
	}
	if id == "" {
		return "", fmt.Errorf("issue session token: empty id")
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": id})
	return jt.SignedString(m.secret)
}

// Verify returns the id embedded in raw, or ErrInvalidToken.
func (m *Manager) Verify(raw string) (string, error) {
	if raw == "" || len(m.secret) == 0 {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}
