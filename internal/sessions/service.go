package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/authrouter/authrouter/internal/models"
)

// Service wraps repository operations with login-session logic
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{repo: r, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// TTL is the lifetime given to new sessions.
func (s *Service) TTL() time.Duration { return s.ttl }

// Start returns a fresh, unsaved session with a random id.
func (s *Service) Start() (*Session, error) {
	id, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}, nil
}

// Load returns the session for id, or nil if it is unknown or expired.
func (s *Service) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("sessions: save without id")
	}
	return s.repo.Save(ctx, sess)
}

// SetUser records the signed-in identity and consumes any pending state.
func (s *Service) SetUser(ctx context.Context, sess *Session, id models.Identity) error {
	sess.User = &id
	sess.OAuthState = ""
	return s.Save(ctx, sess)
}

// NewState stores a fresh OAuth state value on sess and returns it.
func (s *Service) NewState(ctx context.Context, sess *Session) (string, error) {
	st, err := randomHex(16)
	if err != nil {
		return "", err
	}
	sess.OAuthState = st
	if err := s.Save(ctx, sess); err != nil {
		return "", err
	}
	return st, nil
}

func (s *Service) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.Delete(ctx, id)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
