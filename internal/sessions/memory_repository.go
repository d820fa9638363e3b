package sessions

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryRepository keeps sessions in process. Used when neither Redis nor
// Mongo is configured; sessions do not survive restarts.
type MemoryRepository struct {
	c *gocache.Cache
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{c: gocache.New(24*time.Hour, time.Minute)}
}

func (r *MemoryRepository) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	cp := *s
	r.c.Set(s.ID, &cp, ttl)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	v, ok := r.c.Get(id)
	if !ok {
		return nil, nil
	}
	s, _ := v.(*Session)
	if s == nil || s.Expired(time.Now().UTC()) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.c.Delete(id)
	return nil
}
