package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chaplog/internal/metrics"
)

// TokenPurger deletes refresh tokens that stopped being usable before the
// cutoff.
type TokenPurger interface {
	PurgeTokens(ctx context.Context, before time.Time) (int64, error)
}

type Processor struct {
	tokens    TokenPurger
	retention time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewProcessor(tokens TokenPurger, retention time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		tokens:    tokens,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle runs one stream message. A nil return acknowledges the message, so
// malformed and unknown tasks are logged and dropped rather than retried.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := Decode(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed task")
		metrics.TasksProcessed.WithLabelValues("malformed", "dropped").Inc()
		return nil
	}

	switch task.Type {
	case TypeRefreshTokenCleanup:
		err = p.handleTokenCleanup(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Str("message_id", msg.ID).Msg("unknown task type")
		metrics.TasksProcessed.WithLabelValues(task.Type, "unknown").Inc()
		return nil
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.TasksProcessed.WithLabelValues(task.Type, outcome).Inc()
	return err
}

func (p *Processor) handleTokenCleanup(ctx context.Context) error {
	cutoff := p.now().UTC().Add(-p.retention)
	purged, err := p.tokens.PurgeTokens(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	metrics.RefreshTokensPurged.Add(float64(purged))
	p.logger.Info().
		Int64("purged", purged).
		Time("cutoff", cutoff).
		Msg("refresh token cleanup finished")
	return nil
}
