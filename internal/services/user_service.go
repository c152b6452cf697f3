package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vigilauth/vigil/internal/models"
)

// UserLister extends the auth-flow repository with the admin listing.
type UserLister interface {
	UserRepository
	List(ctx context.Context) ([]*models.User, error)
}

// UserService handles user read operations outside the login flow.
type UserService struct {
	repo   UserLister
	logger *slog.Logger
}

func NewUserService(repo UserLister, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}
