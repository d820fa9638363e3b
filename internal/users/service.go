package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/authrouter/authrouter/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// EnsureUser creates the row for ident on first login and leaves an existing
// row untouched. It performs one read and at most one write. A duplicate-key
// failure on insert means a concurrent login created the row first and is
// reported as "already existed". created is true only when this call inserted.
func (s *Service) EnsureUser(ctx context.Context, ident models.Identity) (created bool, err error) {
	if ident.ID == "" {
		return false, fmt.Errorf("ensure user: empty id")
	}
	existing, err := s.repo.GetByID(ctx, ident.ID)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	err = s.repo.Insert(ctx, &models.User{ID: ident.ID, Provider: ident.Provider})
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return true, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetProfile overwrites the profile image of row id. The image is stored as given.
func (s *Service) SetProfile(ctx context.Context, id, image string) error {
	if err := s.repo.UpdateProfile(ctx, id, image); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
