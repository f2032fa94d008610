package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/auth"
)

// TokenVerifier validates a raw token string.
type TokenVerifier interface {
	VerifyProfileToken(ctx context.Context, token string) (auth.Claims, error)
}

// BearerAuth verifies the Authorization header and stores the claims under
// auth.ClaimsLocalsKey. The header may carry the bare token or "Bearer <token>".
func BearerAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return apperr.New(apperr.KindInvalidToken, auth.MsgUnauthorized)
		}
		claims, err := verifier.VerifyProfileToken(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(auth.ClaimsLocalsKey, claims)
		return c.Next()
	}
}

func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		header = header[len("bearer "):]
	}
	return strings.TrimSpace(header)
}
