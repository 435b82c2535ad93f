package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"chaplog/internal/config"
	"chaplog/internal/database"
	"chaplog/internal/log"
	"chaplog/internal/repository"
	"chaplog/internal/service"
)

// migrate waits for Postgres, applies pending migrations and seeds the first
// administrator. It is safe to run on every deploy.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "migrate").Logger()
	if cfg.Postgres.DSN == "" {
		logger.Fatal().Msg("postgres.dsn is required")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
}

func run(cfg *config.AppConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectWithRetry(ctx, cfg.Postgres, cfg.Migrate.MaxAttempts, cfg.Migrate.BaseDelay, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool, logger)
	if err != nil {
		return err
	}
	logger.Info().Strs("applied", applied).Msg("schema up to date")

	if cfg.Migrate.AdminEmail == "" || cfg.Migrate.AdminPassword == "" {
		logger.Warn().Msg("admin seed skipped, no credentials configured")
		return nil
	}

	admin := service.NewAdminService(repository.NewUserRepository(pool), logger)
	created, err := admin.SeedAdmin(ctx, service.AdminSeed{
		Email:    cfg.Migrate.AdminEmail,
		Password: cfg.Migrate.AdminPassword,
		UserName: cfg.Migrate.AdminUserName,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if !created {
		logger.Info().Msg("users already present, admin seed skipped")
	}
	return nil
}
