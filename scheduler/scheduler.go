package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// Store is the persistence a pass needs: the lease operations plus a node
// lookup to load the claimed record.
type Store interface {
	lease.Store
	GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error)
}

// Offerer runs a session offer asynchronously. If it cannot accept the
// offer it must finish the session itself and return an error.
type Offerer interface {
	Submit(plugin consensus.Schedulable, s *session.Session) error
}

// Report summarises one scheduling pass.
type Report struct {
	PassID    id.PassID     `json:"pass_id"`
	StartedAt time.Time     `json:"started_at"`
	Deadline  time.Time     `json:"deadline"`
	Elapsed   time.Duration `json:"elapsed"`
	Claimed   int           `json:"claimed"`
	Retries   int           `json:"retries"`
	Offered   int           `json:"offered"`
	Released  int64         `json:"released"`
	// Skipped is set when the pass did nothing because the instance was
	// shutting down.
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// Scheduler runs scheduling passes for one instance.
type Scheduler struct {
	store      Store
	claimer    *lease.Claimer
	plugins    *consensus.Registry
	offerer    Offerer
	extensions *ext.Registry
	state      *State
	logger     *slog.Logger

	ttl time.Duration
	now func() time.Time

	// pass admits one pass at a time.
	pass sync.Mutex

	lastMu   sync.RWMutex
	last     Report
	lastSeen bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTTL sets both the pass deadline and the lease duration.
func WithTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.ttl = d }
}

// WithClock overrides the clock used for deadlines and lease expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(
	store Store,
	plugins *consensus.Registry,
	offerer Offerer,
	extensions *ext.Registry,
	state *State,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		store:      store,
		claimer:    lease.NewClaimer(store),
		plugins:    plugins,
		offerer:    offerer,
		extensions: extensions,
		state:      state,
		logger:     logger,
		ttl:        ledgerwork.DefaultConfig().TTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the shared scheduling state.
func (s *Scheduler) State() *State { return s.state }

// LastReport returns the report of the most recent completed pass.
func (s *Scheduler) LastReport() (Report, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last, s.lastSeen
}

// RunPass runs one scheduling pass identified by passID.
//
// A store failure ends the claim loop and is returned; the lease cleanup
// still runs and its own failure is joined to the returned error. A lost
// claim race is not a failure.
func (s *Scheduler) RunPass(ctx context.Context, passID id.PassID) (Report, error) {
	if !s.pass.TryLock() {
		return Report{PassID: passID, Skipped: true}, ledgerwork.ErrPassInProgress
	}
	defer s.pass.Unlock()

	if s.state.ShuttingDown() {
		s.logger.Debug("skipping pass, shutting down", slog.String("pass_id", passID.String()))
		return Report{PassID: passID, Skipped: true}, nil
	}

	start := s.now()
	rep := Report{
		PassID:    passID,
		StartedAt: start,
		Deadline:  start.Add(s.ttl),
	}
	s.extensions.EmitPassStarted(ctx, passID, rep.Deadline)

	passErr := s.claimLoop(ctx, &rep)

	// Cleanup must run even when the caller's context is already done.
	cleanupCtx := context.WithoutCancel(ctx)
	released, relErr := s.store.ReleaseOwnedBy(cleanupCtx, passID)
	if relErr != nil {
		relErr = fmt.Errorf("release leases of %s: %w", passID, relErr)
		s.logger.Error("failed to release pass leases",
			slog.String("pass_id", passID.String()),
			slog.String("error", relErr.Error()),
		)
	}
	rep.Released = released
	rep.Elapsed = s.now().Sub(start)

	err := errors.Join(passErr, relErr)
	if err != nil {
		rep.Error = err.Error()
	}
	s.logPass(rep, passErr)
	s.extensions.EmitPassCompleted(cleanupCtx, passID, rep.Claimed, rep.Released, rep.Elapsed, err)

	s.lastMu.Lock()
	s.last, s.lastSeen = rep, true
	s.lastMu.Unlock()

	return rep, err
}

// claimLoop claims and offers nodes until the pass has to stop. It returns
// the store error that ended the loop, if any.
func (s *Scheduler) claimLoop(ctx context.Context, rep *Report) error {
	gate := s.state.Gate()
	for gate.HasCapacity() && s.now().Before(rep.Deadline) && !s.state.ShuttingDown() {
		res, err := s.claimer.Claim(ctx, rep.PassID, rep.Deadline)
		if err != nil {
			return err
		}

		switch res.Outcome {
		case lease.None:
			return nil
		case lease.Retry:
			rep.Retries++
			s.extensions.EmitClaimRetried(ctx, rep.PassID)
			continue
		case lease.Claimed:
		}

		rep.Claimed++
		n, err := s.store.GetNode(ctx, res.NodeID)
		if err != nil {
			return fmt.Errorf("load claimed node %s: %w", res.NodeID, err)
		}
		s.logger.Debug("claimed ledger node",
			slog.String("pass_id", rep.PassID.String()),
			slog.String("node_id", n.ID.String()),
			slog.String("consensus", n.Consensus),
		)
		s.extensions.EmitNodeClaimed(ctx, rep.PassID, n)

		// Deleted between the claim and the read; cleanup drops the lease.
		if n.Deleted() {
			s.logger.Debug("claimed node was deleted, not offering",
				slog.String("pass_id", rep.PassID.String()),
				slog.String("node_id", n.ID.String()),
			)
			continue
		}
		if s.offer(ctx, rep.PassID, n) {
			rep.Offered++
		}
	}
	return nil
}

// offer hands n to its consensus plugin without waiting for the plugin. It
// reports whether a session was submitted. Nodes whose plugin is unknown or
// does not take scheduled work are left for the pass cleanup to release.
func (s *Scheduler) offer(ctx context.Context, passID id.PassID, n *node.Node) bool {
	plugin, ok := s.plugins.Get(n.Consensus)
	if !ok {
		s.logger.Warn("no consensus plugin registered for node",
			slog.String("node_id", n.ID.String()),
			slog.String("consensus", n.Consensus),
		)
		return false
	}
	schedulable, ok := plugin.(consensus.Schedulable)
	if !ok {
		return false
	}

	gate := s.state.Gate()
	gate.Acquire()

	hookCtx := context.WithoutCancel(ctx)
	var sess *session.Session
	sess = session.New(passID, n, func() {
		if !gate.Release() {
			s.logger.Error("session finished with no session in flight",
				slog.String("session_id", sess.ID.String()),
				slog.String("node_id", n.ID.String()),
			)
		}
		s.extensions.EmitSessionFinished(hookCtx, sess, time.Since(sess.OfferedAt))
	})

	if err := s.offerer.Submit(schedulable, sess); err != nil {
		s.logger.Debug("offer rejected",
			slog.String("node_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (s *Scheduler) logPass(rep Report, passErr error) {
	attrs := []any{
		slog.String("pass_id", rep.PassID.String()),
		slog.Int("claimed", rep.Claimed),
		slog.Int("offered", rep.Offered),
		slog.Int("retries", rep.Retries),
		slog.Int64("released", rep.Released),
		slog.Int("running", s.state.Gate().Running()),
		slog.Duration("elapsed", rep.Elapsed),
	}
	switch {
	case passErr != nil:
		s.logger.Error("scheduling pass failed", append(attrs, slog.String("error", passErr.Error()))...)
	case rep.Claimed > 0:
		s.logger.Info("scheduling pass completed", attrs...)
	default:
		s.logger.Debug("scheduling pass completed", attrs...)
	}
}
