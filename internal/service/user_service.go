package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gigfolio/internal/middleware"
	"gigfolio/internal/models"
	"gigfolio/internal/repository"
)

// ErrInconsistentSession means a valid session points at a user row that no longer exists.
var ErrInconsistentSession = errors.New("session refers to a missing user")

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ViewProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, s.inconsistent(ctx, userID)
	}
	return user, nil
}

// UpdateProfile overwrites name and skills as given.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, name, skills string) error {
	err := s.userRepo.UpdateProfile(ctx, userID, name, skills)
	if errors.Is(err, models.ErrNotFound) {
		return s.inconsistent(ctx, userID)
	}
	return err
}

func (s *UserService) inconsistent(ctx context.Context, userID uint) error {
	middleware.Logger.ErrorContext(ctx, "authenticated session has no user row",
		slog.Uint64("session_user_id", uint64(userID)))
	return models.NewInternalError(fmt.Errorf("%w: user %d", ErrInconsistentSession, userID))
}
