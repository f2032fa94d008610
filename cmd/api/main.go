package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wearzy/wearzy/internal/config"
	"github.com/wearzy/wearzy/internal/identity"
	"github.com/wearzy/wearzy/internal/infra"
	"github.com/wearzy/wearzy/internal/logging"
	"github.com/wearzy/wearzy/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open credential store", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("redis disabled; idempotency and login rate limiting are off")
	}

	srv, err := server.New(cfg, users, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Address(), "env", cfg.AppEnv)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// openStore connects the configured credential store and applies migrations.
// The returned func releases the underlying pool.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Repository, func(), error) {
	opts := infra.PoolOptions{MaxConns: cfg.DBMaxConns, ConnectTimeout: cfg.DBAcquireTimeout}

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBMigrate {
			db := stdlib.OpenDBFromPool(pool)
			err := infra.Migrate(ctx, db, config.DriverPostgres)
			closeQuietly(db, logger)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return identity.NewPostgresRepository(pool, cfg.DBAcquireTimeout), pool.Close, nil

	case config.DriverMySQL:
		db, err := infra.NewMySQLDB(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBMigrate {
			if err := infra.Migrate(ctx, db, config.DriverMySQL); err != nil {
				closeQuietly(db, logger)
				return nil, nil, err
			}
		}
		return identity.NewMySQLRepository(db, cfg.DBAcquireTimeout), func() { closeQuietly(db, logger) }, nil

	default:
		logger.Warn("using in-memory credential store; data is lost on exit")
		return identity.NewMemoryRepository(), func() {}, nil
	}
}

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("close store handle", "error", err)
	}
}
