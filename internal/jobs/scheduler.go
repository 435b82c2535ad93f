package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"chaplog/internal/tasks"
)

const enqueueTimeout = 5 * time.Second

// Enqueuer hands a task to the worker stream.
type Enqueuer interface {
	Enqueue(ctx context.Context, values map[string]any) (string, error)
}

// Sweeper drops expired rate limit windows.
type Sweeper interface {
	Sweep() int
}

type Options struct {
	TokenCleanupSpec string
	SweepInterval    time.Duration
}

type Scheduler struct {
	cron    *cron.Cron
	queue   Enqueuer
	sweeper Sweeper
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// NewScheduler wires optional jobs: a nil queue disables token cleanup and a
// nil sweeper disables limiter sweeps.
func NewScheduler(queue Enqueuer, sweeper Sweeper, opts Options, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{log})),
		queue:   queue,
		sweeper: sweeper,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.queue != nil && s.opts.TokenCleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.TokenCleanupSpec, s.enqueueTokenCleanup); err != nil {
			return fmt.Errorf("schedule token cleanup: %w", err)
		}
	}
	if s.sweeper != nil && s.opts.SweepInterval > 0 {
		s.cron.Schedule(cron.Every(s.opts.SweepInterval), cron.FuncJob(s.sweep))
	}

	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs or ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) enqueueTokenCleanup() {
	if _, err := s.EnqueueTokenCleanup(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("enqueue token cleanup failed")
	}
}

// EnqueueTokenCleanup pushes one cleanup task immediately.
func (s *Scheduler) EnqueueTokenCleanup(ctx context.Context) (string, error) {
	values, err := tasks.Task{
		Type:        tasks.TypeRefreshTokenCleanup,
		RequestedAt: s.now().UTC(),
	}.Values()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	id, err := s.queue.Enqueue(ctx, values)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("message_id", id).Msg("token cleanup enqueued")
	return id, nil
}

func (s *Scheduler) sweep() {
	if removed := s.sweeper.Sweep(); removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("rate limit windows swept")
	}
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
