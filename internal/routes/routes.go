package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/wearzy/wearzy/internal/auth"
	"github.com/wearzy/wearzy/internal/config"
	"github.com/wearzy/wearzy/internal/identity"
	"github.com/wearzy/wearzy/internal/middleware"
	"github.com/wearzy/wearzy/internal/notification"
	"github.com/wearzy/wearzy/internal/password"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Users  identity.Repository
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Users == nil {
		return fmt.Errorf("credential store is required")
	}
	if d.Cache == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	hasher, err := password.NewHasher(d.Cfg.BcryptCost, d.Cfg.HashConcurrency)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	d.Logger.Info("password hasher ready",
		slog.Int("bcrypt_cost", hasher.Cost()),
		slog.Int("concurrency", d.Cfg.HashConcurrency),
	)
	issuer, err := auth.NewIssuer(d.Cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc, err := identity.NewService(d.Users, hasher, notifier, d.Logger)
	if err != nil {
		return fmt.Errorf("identity service: %w", err)
	}
	authSvc := auth.NewService(identitySvc, issuer, d.Logger)

	var idempotent fiber.Handler
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	api := app.Group("/api")
	RegisterUserRoutes(api, userRoutes{
		identity:    identity.NewHandler(identitySvc),
		auth:        auth.NewHandler(authSvc),
		bearer:      middleware.BearerAuth(authSvc),
		rateLimiter: middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimitPerMinute, d.Logger),
		idempotent:  idempotent,
	})

	return nil
}
