// Package user implements registration, sign-in and onboarding over the user
// record store.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/journeysyoga/journeys/internal/lib/password"
	"github.com/journeysyoga/journeys/internal/models"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAlreadyOnboarded is returned when the record is already marked
	// onboarded.
	ErrAlreadyOnboarded = errors.New("onboarding already complete")
)

// UserStore is the subset of the record store the service uses.
type UserStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*models.UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	CompleteOnboarding(ctx context.Context, userID string, profile models.OnboardingProfile) error
}

// Service handles user lifecycle operations.
type Service struct {
	log   *slog.Logger
	store UserStore
}

// New creates a user service.
func New(log *slog.Logger, store UserStore) *Service {
	return &Service{log: log, store: store}
}

// Register creates a new record with the default free subscription status.
func (s *Service) Register(ctx context.Context, email, name, plainPassword string) (*models.UserRecord, error) {
	const op = "user.Register"

	hash, err := password.GetHash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.store.CreateUser(ctx, email, name, hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("created new user",
		slog.String("op", op),
		slog.String("email", email))
	return user, nil
}

// Authenticate verifies the password against the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, plainPassword string) (*models.UserRecord, error) {
	const op = "user.Authenticate"

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(user.PasswordHash, plainPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	return user, nil
}

// CompleteOnboarding stores the profile and marks the record onboarded.
// Re-submitting a completed onboarding is rejected so the page can forward
// home instead of silently overwriting the profile.
func (s *Service) CompleteOnboarding(ctx context.Context, email string, profile models.OnboardingProfile) error {
	const op = "user.CompleteOnboarding"

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.OnboardingComplete {
		return fmt.Errorf("%s: %w", op, ErrAlreadyOnboarded)
	}

	if err := s.store.CompleteOnboarding(ctx, user.ID, profile); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("onboarding complete",
		slog.String("op", op),
		slog.String("email", email))
	return nil
}
