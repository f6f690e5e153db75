package service

import (
	"context"
	"strings"

	"sockchat/internal/domain"
)

// UserService provides user-related operations over the persistence gateway.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// FindOrCreate resolves the user for the given username, creating it on
// first sight. The username is the only identity the service works with.
func (s *UserService) FindOrCreate(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.users.FindOrCreate(ctx, username)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListOnline(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListOnline(ctx)
}

func (s *UserService) SetOnline(ctx context.Context, id int64, connectionID string) error {
	return s.users.SetOnline(ctx, id, connectionID)
}

func (s *UserService) SetOfflineByConnection(ctx context.Context, connectionID string) (*domain.User, error) {
	return s.users.SetOfflineByConnection(ctx, connectionID)
}
