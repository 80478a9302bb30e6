// Package backoff retries store connectivity checks while a process starts.
// A freshly scheduled daemon often comes up before its database does, so the
// first Ping is retried with capped exponential delays instead of failing the
// boot.
package backoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config controls the retry schedule.
type Config struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Max caps a single delay.
	Max time.Duration
	// MaxElapsed bounds the whole wait. Zero retries until ctx is done.
	MaxElapsed time.Duration
}

// DefaultConfig returns a schedule starting at 100ms, capped at 5s per
// attempt and one minute overall.
func DefaultConfig() Config {
	return Config{
		Initial:    100 * time.Millisecond,
		Max:        5 * time.Second,
		MaxElapsed: time.Minute,
	}
}

// New builds the exponential schedule for cfg.
func New(cfg Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.2
	b.InitialInterval = cfg.Initial
	b.Multiplier = 2
	b.MaxInterval = cfg.Max
	b.MaxElapsedTime = cfg.MaxElapsed
	b.Reset()
	return b
}

// WaitReady calls ping until it succeeds, ctx is done or the schedule is
// exhausted. The last ping error is returned on failure.
func WaitReady(ctx context.Context, ping func(context.Context) error, cfg Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	op := func() error {
		attempt++
		return ping(ctx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("store not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("next", next),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(New(cfg), ctx), notify); err != nil {
		return fmt.Errorf("store not ready after %d attempts: %w", attempt, err)
	}
	if attempt > 1 {
		logger.Info("store ready", slog.Int("attempts", attempt))
	}
	return nil
}
