package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
)

// PassFunc runs one scheduling pass.
type PassFunc func(ctx context.Context, passID id.PassID) error

// cronParser supports 5 or 6 field cron expressions and descriptors like
// "@hourly".
var cronParser = cronlib.NewParser(
	cronlib.SecondOptional | cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// interval fires at a fixed period. The cron library rounds "@every" up to
// whole seconds, which is too coarse for pass triggers.
type interval time.Duration

func (i interval) Next(t time.Time) time.Time { return t.Add(time.Duration(i)) }

// ParseSchedule parses a trigger schedule expression.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutPrefix(expr, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("parse interval %q: %w", expr, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval %q must be positive", expr)
		}
		return interval(d), nil
	}
	return cronParser.Parse(expr)
}

// Trigger runs passes on a schedule, one at a time.
type Trigger struct {
	run      PassFunc
	schedule cronlib.Schedule
	logger   *slog.Logger

	fired   atomic.Int64
	skipped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Trigger firing run on expr.
func New(run PassFunc, expr string, logger *slog.Logger) (*Trigger, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: trigger schedule: %w", ledgerwork.ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		run:      run,
		schedule: sched,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}, nil
}

// Fired returns the number of passes the trigger started.
func (t *Trigger) Fired() int64 { return t.fired.Load() }

// Skipped returns the number of ticks skipped because a pass was already
// in progress elsewhere.
func (t *Trigger) Skipped() int64 { return t.skipped.Load() }

// Start launches the tick goroutine.
func (t *Trigger) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	t.running = true

	t.wg.Add(1)
	go t.tickLoop()
	t.logger.Info("pass trigger started")
	return nil
}

// Stop signals the tick goroutine to stop and waits for the current pass.
// If ctx ends first, the pass context is cancelled.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.mu.Unlock()

	close(t.stopCh)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.logger.Warn("pass trigger stop timed out, cancelling current pass")
		t.cancel()
		<-done
	}
	t.cancel()
	t.logger.Info("pass trigger stopped")
	return nil
}

// tickLoop waits for each scheduled time and runs a pass inline.
func (t *Trigger) tickLoop() {
	defer t.wg.Done()

	timer := time.NewTimer(time.Until(t.schedule.Next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-timer.C:
			t.fire()
			timer.Reset(time.Until(t.schedule.Next(time.Now())))
		}
	}
}

func (t *Trigger) fire() {
	passID := id.NewPassID()
	err := t.run(t.ctx, passID)
	switch {
	case errors.Is(err, ledgerwork.ErrPassInProgress):
		t.skipped.Add(1)
		t.logger.Debug("pass already in progress, skipping tick")
	case err != nil:
		t.fired.Add(1)
		// The scheduler already logged the failure; keep the tick loop going.
		t.logger.Debug("triggered pass failed",
			slog.String("pass_id", passID.String()),
			slog.String("error", err.Error()),
		)
	default:
		t.fired.Add(1)
	}
}
