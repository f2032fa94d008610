package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/wearzy/wearzy/internal/password"
)

const (
	// DriverPostgres selects the pgx-backed credential store.
	DriverPostgres = "postgres"
	// DriverMySQL selects the go-sql-driver/mysql credential store.
	DriverMySQL = "mysql"
	// DriverMemory selects the in-process store; development only.
	DriverMemory = "memory"

	minSecretLength = 16
)

// Config captures application runtime configuration loaded from environment variables.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"Wearzy"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	Port     string `env:"PORT" envDefault:"4005"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is json or text.
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseDriver   string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBAcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"20s"`
	DBMigrate        bool          `env:"DB_MIGRATE" envDefault:"true"`

	RedisURL string `env:"REDIS_URL"`

	// JWTSecret signs login tokens. Changing it invalidates every token
	// issued under the previous value.
	JWTSecret       string `env:"JWT_SECRET,unset"`
	BcryptCost      int    `env:"BCRYPT_COST" envDefault:"10"`
	HashConcurrency int    `env:"HASH_CONCURRENCY"`

	LoginRateLimitPerMinute int           `env:"LOGIN_RATE_LIMIT_PER_MINUTE" envDefault:"5"`
	IdempotencyTTL          time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	ShutdownPeriod          time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.HashConcurrency <= 0 {
		cfg.HashConcurrency = runtime.NumCPU()
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverMySQL:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for driver %s", c.DatabaseDriver)
		}
	case DriverMemory:
		if !c.IsDev() {
			return fmt.Errorf("DATABASE_DRIVER=memory is not allowed when APP_ENV=%s", c.AppEnv)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.RedisURL == "" && !c.IsDev() {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}

	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be set to at least %d bytes", minSecretLength)
	}

	if c.BcryptCost < password.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", password.MinCost, bcrypt.MaxCost)
	}

	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBAcquireTimeout <= 0 {
		return fmt.Errorf("DB_ACQUIRE_TIMEOUT must be positive")
	}
	return nil
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
