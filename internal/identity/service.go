package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/notification"
	"github.com/wearzy/wearzy/internal/password"
)

const (
	msgRegisterFieldsRequired = "Name, email and password are required"
	msgProfileFieldsRequired  = "Name and Email are required"
	msgInvalidEmail           = "Email address is invalid"
	msgEmailTaken             = "This email address is already registered."
	msgUserNotFound           = "User not found"
	// MsgLoginFailed is the single response for every rejected login so
	// callers cannot tell an unknown email from a wrong password.
	MsgLoginFailed = "Login failed: Invalid email or password."
)

// ErrInvalidCredentials is returned by Authenticate for any rejected login.
var ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, MsgLoginFailed)

// Hasher hashes and verifies plaintext passwords.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) bool
}

// Service manages the account lifecycle.
type Service struct {
	repo     Repository
	hasher   Hasher
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time

	// decoyDigest is compared against when the email is unknown so both
	// rejection paths cost one bcrypt verify at the configured cost.
	decoyDigest string
}

// NewService creates a new identity service. notifier may be nil.
func NewService(repo Repository, hasher Hasher, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	decoy, err := hasher.Hash(context.Background(), "wearzy-decoy-password")
	if err != nil {
		return nil, fmt.Errorf("decoy digest: %w", err)
	}
	return &Service{
		repo:        repo,
		hasher:      hasher,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
		decoyDigest: decoy,
	}, nil
}

// NormalizeEmail trims and lowercases an address. Emails are compared
// case-insensitively everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	name := strings.TrimSpace(reg.Name)
	email := NormalizeEmail(reg.Email)
	if name == "" || email == "" || reg.Password == "" {
		return User{}, apperr.New(apperr.KindValidation, msgRegisterFieldsRequired)
	}
	if !validEmail(email) {
		return User{}, apperr.New(apperr.KindValidation, msgInvalidEmail)
	}

	digest, err := s.hasher.Hash(ctx, reg.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return User{}, apperr.Wrap(apperr.KindValidation, "Password must be at most 72 bytes", err)
		}
		return User{}, apperr.Internal(err)
	}

	user, err := s.repo.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, apperr.Wrap(apperr.KindConflict, msgEmailTaken, err)
		}
		return User{}, apperr.Internal(fmt.Errorf("register user: %w", err))
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))

	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindWelcome,
			Destination: user.Email,
			Body:        fmt.Sprintf("Welcome to Wearzy, %s!", user.Name),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "welcome notification failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}

	return user, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials, and both pay for one bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Verify(ctx, creds.Password, s.decoyDigest)
			return User{}, ErrInvalidCredentials
		}
		return User{}, apperr.Internal(fmt.Errorf("authenticate: %w", err))
	}

	if !s.hasher.Verify(ctx, creds.Password, user.PasswordHash) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return User{}, apperr.Internal(ctxErr)
		}
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile replaces the name and email of user id.
func (s *Service) UpdateProfile(ctx context.Context, id int64, profile Profile) (Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Email = NormalizeEmail(profile.Email)
	if profile.Name == "" || profile.Email == "" {
		return Profile{}, apperr.New(apperr.KindValidation, msgProfileFieldsRequired)
	}
	if !validEmail(profile.Email) {
		return Profile{}, apperr.New(apperr.KindValidation, msgInvalidEmail)
	}
	if id <= 0 {
		return Profile{}, apperr.New(apperr.KindNotFound, msgUserNotFound)
	}

	if err := s.repo.UpdateProfile(ctx, id, profile); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return Profile{}, apperr.Wrap(apperr.KindNotFound, msgUserNotFound, err)
		case errors.Is(err, ErrEmailTaken):
			return Profile{}, apperr.Wrap(apperr.KindConflict, msgEmailTaken, err)
		default:
			return Profile{}, apperr.Internal(fmt.Errorf("update profile: %w", err))
		}
	}

	s.logger.InfoContext(ctx, "profile updated", slog.Int64("user_id", id))
	return profile, nil
}

// List returns all registered users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}
