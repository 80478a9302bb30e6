package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/session"
)

// Pool runs session offers off the scheduling goroutine and keeps track of
// the sessions they open.
//
// Every offer runs on its own goroutine: the number of offers in flight is
// already bounded by the session gate, so the pool needs no worker limit of
// its own.
type Pool struct {
	executor *Executor
	logger   *slog.Logger

	// ctx is handed to plugins and cancelled when Stop times out.
	ctx    context.Context
	cancel context.CancelFunc

	offers   sync.WaitGroup
	sessions sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool

	activeSessions map[string]*session.Session
	activeMu       sync.Mutex
}

// NewPool creates an offer pool.
func NewPool(executor *Executor, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		executor:       executor,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		activeSessions: make(map[string]*session.Session),
	}
}

// Start marks the pool ready to accept offers. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return nil
	}
	p.running = true

	p.logger.Info("offer pool started")
	return nil
}

// Submit hands s to plugin asynchronously and returns at once. If the pool
// is not running the session is finished immediately and
// ErrShuttingDown is returned.
func (p *Pool) Submit(plugin consensus.Schedulable, s *session.Session) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		s.Finish()
		return ledgerwork.ErrShuttingDown
	}
	p.offers.Add(1)
	p.sessions.Add(1)
	p.mu.Unlock()

	p.trackSession(s)
	go p.watch(s)

	go func() {
		defer p.offers.Done()
		if err := p.executor.Execute(p.ctx, plugin, s); err != nil {
			p.logger.Debug("session offer returned error",
				slog.String("session_id", s.ID.String()),
				slog.String("node_id", s.Node.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Active returns the number of sessions opened through the pool that have
// not finished yet.
func (p *Pool) Active() int {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	return len(p.activeSessions)
}

// Stop refuses new offers and waits for in-flight offers and open sessions
// to finish. If the context ends first, the plugin context is cancelled so
// well-behaved plugins can wind their sessions down.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("offer pool stopping", slog.Int("active_sessions", p.Active()))

	done := make(chan struct{})
	go func() {
		p.offers.Wait()
		p.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("offer pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("offer pool shutdown timed out, cancelling active sessions")
		p.cancelActiveSessions()
		p.offers.Wait()
	}
	p.cancel()

	return nil
}

// watch untracks s when it finishes or the plugin context is cancelled.
func (p *Pool) watch(s *session.Session) {
	defer p.sessions.Done()
	select {
	case <-s.Done():
	case <-p.ctx.Done():
	}
	p.untrackSession(s.ID.String())
}

func (p *Pool) trackSession(s *session.Session) {
	p.activeMu.Lock()
	p.activeSessions[s.ID.String()] = s
	p.activeMu.Unlock()
}

func (p *Pool) untrackSession(sessionID string) {
	p.activeMu.Lock()
	delete(p.activeSessions, sessionID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActiveSessions() {
	p.activeMu.Lock()
	for sessionID, s := range p.activeSessions {
		p.logger.Warn("cancelling active session",
			slog.String("session_id", sessionID),
			slog.String("node_id", s.Node.ID.String()),
		)
	}
	p.activeMu.Unlock()
	p.cancel()
}
