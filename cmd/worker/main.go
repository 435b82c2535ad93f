package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"chaplog/internal/cache"
	"chaplog/internal/config"
	"chaplog/internal/database"
	"chaplog/internal/log"
	"chaplog/internal/queue"
	"chaplog/internal/repository"
	"chaplog/internal/service"
	"chaplog/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()
	if cfg.Postgres.DSN == "" {
		logger.Fatal().Msg("postgres.dsn is required")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker exited with error")
	}
	logger.Info().Msg("worker stopped")
}

func run(cfg *config.AppConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer client.Close()

	// Purging tokens never signs or parses JWTs, so no issuer is needed.
	auth := service.NewAuthService(
		repository.NewUserRepository(dbPool),
		repository.NewRefreshTokenRepository(dbPool),
		nil,
		cfg.Security,
		logger,
	)

	processor := tasks.NewProcessor(auth, cfg.Jobs.TokenRetention, logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Redis.Stream,
		Group:         cfg.Redis.Group,
		Consumer:      cfg.Redis.Consumer,
		ClaimInterval: cfg.Redis.ClaimInterval,
	}, logger, processor)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped unexpectedly: %w", err)
	}
	logger.Info().Msg("shutdown signal received")
	return nil
}
