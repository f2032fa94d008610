package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/identity"
)

// LoginTokenTTL is the lifetime of every login token.
const LoginTokenTTL = time.Hour

// MsgUnauthorized is the body message for every rejected profile token.
const MsgUnauthorized = "unauthorized"

// Service issues login tokens and verifies them. It keeps no per-token state;
// expiry is the only way a token stops being accepted.
type Service struct {
	ids    *identity.Service
	issuer *Issuer
	logger *slog.Logger
}

// NewService wires credential checks to the token issuer.
func NewService(ids *identity.Service, issuer *Issuer, logger *slog.Logger) *Service {
	return &Service{ids: ids, issuer: issuer, logger: logger}
}

// LoginResult is a freshly issued token with the claims it carries.
type LoginResult struct {
	Token  string
	Claims Claims
}

// Login validates credentials (by delegating to identity.Service) and issues a token.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (LoginResult, error) {
	user, err := s.ids.Authenticate(ctx, creds)
	if err != nil {
		return LoginResult{}, err
	}
	token, claims, err := s.issuer.Issue(user.ID, user.Name, user.Email, LoginTokenTTL)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "login succeeded", slog.Int64("user_id", user.ID))
	return LoginResult{Token: token, Claims: claims}, nil
}

// VerifyProfileToken returns the claims embedded in token. No store lookup
// happens, so the claims are those current at login time.
func (s *Service) VerifyProfileToken(ctx context.Context, token string) (Claims, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, ErrTokenExpired) {
			reason = "expired"
		}
		s.logger.DebugContext(ctx, "profile token rejected", slog.String("reason", reason), slog.Any("error", err))
		return Claims{}, apperr.Wrap(apperr.KindInvalidToken, MsgUnauthorized, err)
	}
	return claims, nil
}
