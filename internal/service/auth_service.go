// Package service holds the application's business operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gigfolio/internal/middleware"
	"gigfolio/internal/models"
	"gigfolio/internal/observability"
	"gigfolio/internal/repository"
	"gigfolio/internal/session"
	"gigfolio/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the email is unknown so both failure paths cost a bcrypt round.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gigfolio-dummy-password"), bcrypt.DefaultCost)

type AuthService struct {
	userRepo repository.UserRepository
	sessions session.Store
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func NewAuthService(userRepo repository.UserRepository, sessions session.Store) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions}
}

// Register creates a user with a bcrypt-hashed password and returns its id.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (uint, error) {
	span, ctx := observability.NewSpan(ctx, "AuthService.Register")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)

	if err := validation.ValidateName(name); err != nil {
		return 0, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return 0, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return 0, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	if existing != nil {
		return 0, models.NewDuplicateEmailError(email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		span.SetError(err)
		return 0, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
	}
	// The unique index still guards the race between the lookup and the insert.
	if err := s.userRepo.Create(ctx, user); err != nil {
		span.SetError(err)
		return 0, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("new_user_id", uint64(user.ID)))
	return user.ID, nil
}

// Login verifies credentials and opens a fresh session. On success priorToken's session
// is deleted first; on failure it is left exactly as it was.
func (s *AuthService) Login(ctx context.Context, email, password, priorToken string) (string, session.Record, error) {
	span, ctx := observability.NewSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", session.Record{}, err
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.Password)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || user == nil {
		observability.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", session.Record{}, models.NewInvalidCredentialsError()
	}

	if err := s.sessions.Delete(ctx, priorToken); err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", session.Record{}, models.NewInternalError(err)
	}

	token, rec, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", session.Record{}, models.NewInternalError(err)
	}

	span.AddAttributes(attribute.Int64("user.id", int64(user.ID)))
	observability.LoginsTotal.WithLabelValues("success").Inc()
	return token, rec, nil
}

// Logout deletes the session behind token, if any.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate resolves token to a user id or fails with ErrSessionRequired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uint, error) {
	rec, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return 0, models.NewSessionRequiredError()
		}
		return 0, models.NewInternalError(err)
	}
	return rec.UserID, nil
}
