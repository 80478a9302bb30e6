package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/middleware"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
	"github.com/xraph/ledgerwork/worker"
)

func setupTestPool(t *testing.T, extensions ...ext.Extension) *worker.Pool {
	t.Helper()
	logger := slog.Default()
	reg := ext.NewRegistry(logger)
	for _, e := range extensions {
		reg.Register(e)
	}

	executor := worker.NewExecutor(reg, logger, middleware.Recover(logger))
	pool := worker.NewPool(executor, logger)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	})
	return pool
}

// newCountedSession returns a session whose completion decrements running.
func newCountedSession(running *atomic.Int64) *session.Session {
	running.Add(1)
	return session.New(id.NewPassID(), &node.Node{
		ID:        id.NewNodeID(),
		Consensus: "continuity",
	}, func() { running.Add(-1) })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestPool_StartStop(t *testing.T) {
	logger := slog.Default()
	pool := worker.NewPool(worker.NewExecutor(ext.NewRegistry(logger), logger), logger)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	// Double start should be no-op.
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected double-start error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	// Double stop should be no-op.
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected double-stop error: %v", err)
	}
}

func TestPool_SubmitDoesNotBlock(t *testing.T) {
	pool := setupTestPool(t)

	release := make(chan struct{})
	plugin := consensus.ScheduleFunc("slow", func(_ context.Context, s *session.Session) error {
		<-release
		s.Start()
		s.Finish()
		return nil
	})

	var running atomic.Int64
	s := newCountedSession(&running)

	start := time.Now()
	if err := pool.Submit(plugin, s); err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Submit blocked for %s", elapsed)
	}

	close(release)
	waitFor(t, func() bool { return running.Load() == 0 })
}

func TestPool_AcceptedSessionStaysOpen(t *testing.T) {
	pool := setupTestPool(t)

	var held sync.Map
	plugin := consensus.ScheduleFunc("continuity", func(_ context.Context, s *session.Session) error {
		s.Start()
		held.Store(s.ID.String(), s)
		return nil
	})

	var running atomic.Int64
	s := newCountedSession(&running)
	_ = pool.Submit(plugin, s)

	waitFor(t, func() bool {
		_, ok := held.Load(s.ID.String())
		return ok
	})
	time.Sleep(20 * time.Millisecond)
	if running.Load() != 1 {
		t.Fatalf("accepted session released early: running = %d", running.Load())
	}
	if pool.Active() != 1 {
		t.Errorf("Active() = %d, want 1", pool.Active())
	}

	s.Finish()
	waitFor(t, func() bool { return running.Load() == 0 && pool.Active() == 0 })
}

func TestPool_CompensatesUnstartedSessions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, *session.Session) error
	}{
		{"decline", func(context.Context, *session.Session) error { return nil }},
		{"error", func(context.Context, *session.Session) error { return errors.New("no capacity") }},
		{"panic", func(context.Context, *session.Session) error { panic("plugin bug") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &trackingExt{}
			pool := setupTestPool(t, tracker)

			var running atomic.Int64
			s := newCountedSession(&running)
			_ = pool.Submit(consensus.ScheduleFunc("continuity", tt.fn), s)

			waitFor(t, func() bool { return running.Load() == 0 })
			if !s.Finished() {
				t.Error("expected session to be finished")
			}
			waitFor(t, func() bool { return tracker.declined.Load() == 1 })
			if tracker.offered.Load() != 0 {
				t.Errorf("offered = %d, want 0", tracker.offered.Load())
			}
		})
	}
}

func TestPool_FinishTwiceReleasesOnce(t *testing.T) {
	pool := setupTestPool(t)

	plugin := consensus.ScheduleFunc("continuity", func(_ context.Context, s *session.Session) error {
		s.Finish()
		s.Finish()
		return nil
	})

	var running atomic.Int64
	s := newCountedSession(&running)
	_ = pool.Submit(plugin, s)

	waitFor(t, func() bool { return s.Finished() })
	time.Sleep(20 * time.Millisecond)
	if got := running.Load(); got != 0 {
		t.Errorf("running = %d, want 0", got)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	logger := slog.Default()
	pool := worker.NewPool(worker.NewExecutor(ext.NewRegistry(logger), logger), logger)
	_ = pool.Start(context.Background())
	_ = pool.Stop(context.Background())

	var running atomic.Int64
	s := newCountedSession(&running)
	err := pool.Submit(consensus.ScheduleFunc("continuity", func(context.Context, *session.Session) error {
		t.Error("plugin must not be called after stop")
		return nil
	}), s)
	if !errors.Is(err, ledgerwork.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
	if running.Load() != 0 {
		t.Errorf("running = %d, want 0", running.Load())
	}
}

func TestPool_StopCancelsPluginContextOnTimeout(t *testing.T) {
	logger := slog.Default()
	pool := worker.NewPool(worker.NewExecutor(ext.NewRegistry(logger), logger), logger)
	_ = pool.Start(context.Background())

	var cancelled atomic.Bool
	plugin := consensus.ScheduleFunc("continuity", func(ctx context.Context, s *session.Session) error {
		s.Start()
		go func() {
			<-ctx.Done()
			cancelled.Store(true)
			s.Finish()
		}()
		return nil
	})

	var running atomic.Int64
	_ = pool.Submit(plugin, newCountedSession(&running))
	waitFor(t, func() bool { return pool.Active() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("stop error: %v", err)
	}

	waitFor(t, cancelled.Load)
	waitFor(t, func() bool { return running.Load() == 0 })
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// trackingExt counts which session hooks fired.
type trackingExt struct {
	offered  atomic.Int64
	declined atomic.Int64
}

func (e *trackingExt) Name() string { return "tracker" }

func (e *trackingExt) OnSessionOffered(_ context.Context, _ *session.Session) error {
	e.offered.Add(1)
	return nil
}

func (e *trackingExt) OnSessionDeclined(_ context.Context, _ *session.Session, _ error) error {
	e.declined.Add(1)
	return nil
}
