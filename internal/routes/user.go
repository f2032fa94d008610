package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/auth"
	"github.com/wearzy/wearzy/internal/identity"
)

type userRoutes struct {
	identity    *identity.Handler
	auth        *auth.Handler
	bearer      fiber.Handler
	rateLimiter fiber.Handler
	// idempotent replays repeated writes; nil when no cache is configured.
	// Login never gets it: every login must reach the credential check.
	idempotent fiber.Handler
}

// RegisterUserRoutes wires the account endpoints under /user.
func RegisterUserRoutes(r fiber.Router, h userRoutes) {
	group := r.Group("/user")
	group.Post("/register", chain(h.idempotent, h.identity.Register)...)
	group.Post("/login", chain(h.rateLimiter, h.auth.Login)...)
	group.Get("/profile", h.bearer, h.auth.Profile)
	// Unauthenticated: any caller may edit any account by id.
	group.Put("/profile/update/:userId", chain(h.idempotent, h.identity.UpdateProfile)...)
	group.Get("/", h.identity.List)
}

// chain drops nil middleware in front of handler.
func chain(mw fiber.Handler, handler fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{mw, handler}
}
