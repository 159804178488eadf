package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/congo-pay/accounts/internal/config"
	"github.com/congo-pay/accounts/internal/identity"
	"github.com/congo-pay/accounts/internal/infra"
	"github.com/congo-pay/accounts/internal/logging"
	"github.com/congo-pay/accounts/internal/server"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("accounts service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancelConnect()

	repo, closeStore, err := openStore(connectCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	cache, err := infra.NewRedisClient(connectCtx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	srv, err := server.New(cfg, repo, cache, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.Address(),
			"store", cfg.StoreDriver,
			"idempotency", cache != nil,
		)
		listenErr <- srv.Listen()
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured backend, prepares its schema and returns
// a close func for deferred cleanup.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := infra.NewMongoClient(ctx, cfg.MongoURI, cfg.AppName)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				logger.Warn("disconnect mongo", "error", err)
			}
		}
		repo := identity.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return repo, closeFn, nil

	case config.StorePostgres:
		pool, err := infra.NewPostgresPool(ctx, infra.PostgresOptions{
			URL:      cfg.DatabaseURL,
			AppName:  cfg.AppName,
			MaxConns: cfg.DBMaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := identity.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repo, pool.Close, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return identity.NewMemoryRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
