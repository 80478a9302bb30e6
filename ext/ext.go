// Package ext defines the extension system for ledgerwork.
// Extensions are notified of scheduling events (pass started, node claimed,
// session finished, etc.) and can react to them.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Pass lifecycle hooks
// ──────────────────────────────────────────────────

// PassStarted is called when a scheduling pass begins claiming.
type PassStarted interface {
	OnPassStarted(ctx context.Context, passID id.PassID, deadline time.Time) error
}

// NodeClaimed is called after a pass acquires the lease on a node.
type NodeClaimed interface {
	OnNodeClaimed(ctx context.Context, passID id.PassID, n *node.Node) error
}

// ClaimRetried is called when a pass loses the race for a selected node.
type ClaimRetried interface {
	OnClaimRetried(ctx context.Context, passID id.PassID) error
}

// PassCompleted is called after a pass has released its leases.
// passErr is the error that aborted the pass, if any.
type PassCompleted interface {
	OnPassCompleted(ctx context.Context, passID id.PassID, claimed int, released int64, elapsed time.Duration, passErr error) error
}

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// SessionOffered is called when a plugin accepted a work session.
type SessionOffered interface {
	OnSessionOffered(ctx context.Context, s *session.Session) error
}

// SessionDeclined is called when a plugin returned without starting the
// session. offerErr is the error or recovered panic, nil for a plain decline.
type SessionDeclined interface {
	OnSessionDeclined(ctx context.Context, s *session.Session, offerErr error) error
}

// SessionFinished is called when a session ends and frees its gate slot.
type SessionFinished interface {
	OnSessionFinished(ctx context.Context, s *session.Session, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
