package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pharmapos/pharmapos/internal/shared"
)

// RepositoryPort describes user lookup.
type RepositoryPort interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	Get(ctx context.Context, id int64) (User, error)
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// Service authenticates till users.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	activity ActivityPort
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, activity ActivityPort) *Service {
	return &Service{logger: logger, repo: repo, activity: activity}
}

// Login checks the password against the stored bcrypt hash. Unknown users,
// wrong passwords and deactivated accounts all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password required", ErrValidation)
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("auth: lookup: %w", err)
	}
	if !user.Active {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, shared.ActivityEntry{
			ActorID:   user.ID,
			ActorName: user.FullName,
			Action:    "USER_LOGIN",
			Entity:    "user",
			EntityID:  fmt.Sprintf("%d", user.ID),
			Detail:    fmt.Sprintf("%s signed in", user.Username),
		})
	}
	return user, nil
}

// Get loads a user by id, for session refreshes.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, ErrValidation
	}
	return s.repo.Get(ctx, id)
}

// HashPassword produces the stored form of a password, for seeding and
// account management.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
