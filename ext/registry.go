package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type passStartedEntry struct {
	name string
	hook PassStarted
}

type nodeClaimedEntry struct {
	name string
	hook NodeClaimed
}

type claimRetriedEntry struct {
	name string
	hook ClaimRetried
}

type passCompletedEntry struct {
	name string
	hook PassCompleted
}

type sessionOfferedEntry struct {
	name string
	hook SessionOffered
}

type sessionDeclinedEntry struct {
	name string
	hook SessionDeclined
}

type sessionFinishedEntry struct {
	name string
	hook SessionFinished
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register must complete before the engine starts; emits are then safe
// from any goroutine.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	passStarted     []passStartedEntry
	nodeClaimed     []nodeClaimedEntry
	claimRetried    []claimRetriedEntry
	passCompleted   []passCompletedEntry
	sessionOffered  []sessionOfferedEntry
	sessionDeclined []sessionDeclinedEntry
	sessionFinished []sessionFinishedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(PassStarted); ok {
		r.passStarted = append(r.passStarted, passStartedEntry{name, h})
	}
	if h, ok := e.(NodeClaimed); ok {
		r.nodeClaimed = append(r.nodeClaimed, nodeClaimedEntry{name, h})
	}
	if h, ok := e.(ClaimRetried); ok {
		r.claimRetried = append(r.claimRetried, claimRetriedEntry{name, h})
	}
	if h, ok := e.(PassCompleted); ok {
		r.passCompleted = append(r.passCompleted, passCompletedEntry{name, h})
	}
	if h, ok := e.(SessionOffered); ok {
		r.sessionOffered = append(r.sessionOffered, sessionOfferedEntry{name, h})
	}
	if h, ok := e.(SessionDeclined); ok {
		r.sessionDeclined = append(r.sessionDeclined, sessionDeclinedEntry{name, h})
	}
	if h, ok := e.(SessionFinished); ok {
		r.sessionFinished = append(r.sessionFinished, sessionFinishedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Pass event emitters
// ──────────────────────────────────────────────────

// EmitPassStarted notifies all extensions that implement PassStarted.
func (r *Registry) EmitPassStarted(ctx context.Context, passID id.PassID, deadline time.Time) {
	for _, e := range r.passStarted {
		if err := e.hook.OnPassStarted(ctx, passID, deadline); err != nil {
			r.logHookError("OnPassStarted", e.name, err)
		}
	}
}

// EmitNodeClaimed notifies all extensions that implement NodeClaimed.
func (r *Registry) EmitNodeClaimed(ctx context.Context, passID id.PassID, n *node.Node) {
	for _, e := range r.nodeClaimed {
		if err := e.hook.OnNodeClaimed(ctx, passID, n); err != nil {
			r.logHookError("OnNodeClaimed", e.name, err)
		}
	}
}

// EmitClaimRetried notifies all extensions that implement ClaimRetried.
func (r *Registry) EmitClaimRetried(ctx context.Context, passID id.PassID) {
	for _, e := range r.claimRetried {
		if err := e.hook.OnClaimRetried(ctx, passID); err != nil {
			r.logHookError("OnClaimRetried", e.name, err)
		}
	}
}

// EmitPassCompleted notifies all extensions that implement PassCompleted.
func (r *Registry) EmitPassCompleted(ctx context.Context, passID id.PassID, claimed int, released int64, elapsed time.Duration, passErr error) {
	for _, e := range r.passCompleted {
		if err := e.hook.OnPassCompleted(ctx, passID, claimed, released, elapsed, passErr); err != nil {
			r.logHookError("OnPassCompleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Session event emitters
// ──────────────────────────────────────────────────

// EmitSessionOffered notifies all extensions that implement SessionOffered.
func (r *Registry) EmitSessionOffered(ctx context.Context, s *session.Session) {
	for _, e := range r.sessionOffered {
		if err := e.hook.OnSessionOffered(ctx, s); err != nil {
			r.logHookError("OnSessionOffered", e.name, err)
		}
	}
}

// EmitSessionDeclined notifies all extensions that implement SessionDeclined.
func (r *Registry) EmitSessionDeclined(ctx context.Context, s *session.Session, offerErr error) {
	for _, e := range r.sessionDeclined {
		if err := e.hook.OnSessionDeclined(ctx, s, offerErr); err != nil {
			r.logHookError("OnSessionDeclined", e.name, err)
		}
	}
}

// EmitSessionFinished notifies all extensions that implement SessionFinished.
func (r *Registry) EmitSessionFinished(ctx context.Context, s *session.Session, elapsed time.Duration) {
	for _, e := range r.sessionFinished {
		if err := e.hook.OnSessionFinished(ctx, s, elapsed); err != nil {
			r.logHookError("OnSessionFinished", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated and never block scheduling.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
