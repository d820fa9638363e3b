package sessions

import (
	"time"

	"github.com/authrouter/authrouter/internal/models"
)

// Session is the server-side login session referenced by the "sid" cookie.
// OAuthState holds the pending state of a login in progress; User is set once
// a provider callback completes.
type Session struct {
	ID         string           `bson:"_id" json:"id"`
	User       *models.Identity `bson:"user,omitempty" json:"user,omitempty"`
	OAuthState string           `bson:"oauthState,omitempty" json:"oauthState,omitempty"`
	ExpiresAt  time.Time        `bson:"expiresAt" json:"expiresAt"`
	CreatedAt  time.Time        `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
