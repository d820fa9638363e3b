package sessions

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the signed session id.
const CookieName = "sid"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session ids so the cookie value can't be forged or
// replayed past its expiry.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret)}
}

func (c *CookieCodec) Encode(id string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": id,
		"exp": expiresAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode returns the session id from a cookie value.
func (c *CookieCodec) Decode(value string) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrInvalidCookie
	}
	tok, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidCookie
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCookie
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", ErrInvalidCookie
	}
	return sid, nil
}
