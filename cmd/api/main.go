package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chaplog/internal/cache"
	"chaplog/internal/config"
	"chaplog/internal/database"
	"chaplog/internal/handlers"
	"chaplog/internal/jobs"
	"chaplog/internal/log"
	"chaplog/internal/queue"
	"chaplog/internal/ratelimit"
	"chaplog/internal/repository"
	"chaplog/internal/security"
	"chaplog/internal/server"
	"chaplog/internal/service"
	"chaplog/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api exited with error")
	}
	logger.Info().Msg("server exited cleanly")
}

func run(cfg *config.AppConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}()

	objectStore, err := storage.NewObjectStore(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed, cover uploads may be unavailable")
	}

	limiter, sweeper, err := newLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}

	tokens := security.NewTokenIssuer(
		cfg.Security.JWTKey,
		cfg.Security.JWTIssuer,
		cfg.Security.JWTAudience,
		cfg.Security.JWTAccessTTL,
	)

	users := repository.NewUserRepository(dbPool)
	books := repository.NewBookRepository(dbPool)
	bookService := service.NewBookService(books, logger)

	svc := handlers.Services{
		Auth:       service.NewAuthService(users, repository.NewRefreshTokenRepository(dbPool), tokens, cfg.Security, logger),
		Books:      bookService,
		Covers:     service.NewCoverService(bookService, objectStore, cfg.Storage.MaxCoverBytes, logger),
		Entries:    service.NewReadingEntryService(repository.NewReadingEntryRepository(dbPool), books, logger),
		Reviews:    service.NewReviewService(repository.NewReviewRepository(dbPool), books, logger),
		Statistics: service.NewStatisticsService(repository.NewStatisticsRepository(dbPool)),
		Admin:      service.NewAdminService(users, logger),
	}
	checks := healthChecks(dbPool, redisClient)

	handlerSet := handlers.NewHandlerSet(logger, cfg.Environment, tokens, svc, checks)
	httpServer, err := server.NewHTTPServer(cfg, logger, limiter, handlerSet)
	if err != nil {
		return err
	}

	scheduler := jobs.NewScheduler(
		queue.NewProducer(redisClient, cfg.Redis.Stream, 1000),
		sweeper,
		jobs.Options{
			TokenCleanupSpec: cfg.Jobs.TokenCleanupCron,
			SweepInterval:    cfg.RateLimit.SweepInterval,
		},
		logger,
	)
	if err := scheduler.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		scheduler.Stop(shutdownCtx)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newLimiter returns a sweeper only for the in-process limiter; Redis keys
// expire on their own.
func newLimiter(cfg config.RateLimitConfig, client *redis.Client) (ratelimit.Limiter, jobs.Sweeper, error) {
	if cfg.Mode == "redis" {
		limiter, err := ratelimit.NewRedisLimiter(client, cfg.RedisPrefix, cfg.Requests, cfg.Window)
		return limiter, nil, err
	}
	limiter, err := ratelimit.NewMemoryLimiter(cfg.Requests, cfg.Window, nil)
	if err != nil {
		return nil, nil, err
	}
	return limiter, limiter, nil
}

func healthChecks(db *pgxpool.Pool, client *redis.Client) map[string]handlers.HealthCheck {
	return map[string]handlers.HealthCheck{
		"postgres": db.Ping,
		"redis": func(ctx context.Context) error {
			return cache.Ping(ctx, client)
		},
	}
}
