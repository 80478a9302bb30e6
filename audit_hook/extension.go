package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*Extension)(nil)
	_ ext.PassCompleted   = (*Extension)(nil)
	_ ext.NodeClaimed     = (*Extension)(nil)
	_ ext.SessionOffered  = (*Extension)(nil)
	_ ext.SessionDeclined = (*Extension)(nil)
	_ ext.SessionFinished = (*Extension)(nil)
	_ ext.Shutdown        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder returns a Recorder that writes each event as one log record
// at Info level, or Warn for failures.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		if evt.Outcome == OutcomeFailure {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("category", evt.Category),
			slog.String("outcome", evt.Outcome),
			slog.String("severity", evt.Severity),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		if len(evt.Metadata) > 0 {
			meta := make([]any, 0, len(evt.Metadata))
			for k, v := range evt.Metadata {
				meta = append(meta, slog.Any(k, v))
			}
			attrs = append(attrs, slog.Group("metadata", meta...))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges ledgerwork lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Pass lifecycle hooks ────────────────────────────

// OnPassCompleted implements ext.PassCompleted. A pass aborted by a store
// error is recorded as pass.failed.
func (e *Extension) OnPassCompleted(ctx context.Context, passID id.PassID, claimed int, released int64, elapsed time.Duration, passErr error) error {
	action, severity, outcome := ActionPassCompleted, SeverityInfo, OutcomeSuccess
	if passErr != nil {
		action, severity, outcome = ActionPassFailed, SeverityCritical, OutcomeFailure
	}
	return e.record(ctx, action, severity, outcome,
		ResourcePass, passID.String(), CategoryPass, passErr,
		"claimed", claimed,
		"released", released,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnNodeClaimed implements ext.NodeClaimed.
func (e *Extension) OnNodeClaimed(ctx context.Context, passID id.PassID, n *node.Node) error {
	meta := []any{
		"pass_id", passID.String(),
		"ledger", n.Ledger,
		"consensus", n.Consensus,
	}
	if n.Lease != nil {
		meta = append(meta, "lease_expires_at", n.Lease.ExpiresAt.Format(time.RFC3339Nano))
	}
	return e.record(ctx, ActionNodeClaimed, SeverityInfo, OutcomeSuccess,
		ResourceNode, n.ID.String(), CategoryPass, nil, meta...)
}

// ── Session lifecycle hooks ─────────────────────────

// OnSessionOffered implements ext.SessionOffered.
func (e *Extension) OnSessionOffered(ctx context.Context, s *session.Session) error {
	return e.record(ctx, ActionSessionOffered, SeverityInfo, OutcomeSuccess,
		ResourceSession, s.ID.String(), CategorySession, nil,
		sessionMeta(s)...,
	)
}

// OnSessionDeclined implements ext.SessionDeclined.
func (e *Extension) OnSessionDeclined(ctx context.Context, s *session.Session, offerErr error) error {
	return e.record(ctx, ActionSessionDeclined, SeverityWarning, OutcomeFailure,
		ResourceSession, s.ID.String(), CategorySession, offerErr,
		sessionMeta(s)...,
	)
}

// OnSessionFinished implements ext.SessionFinished.
func (e *Extension) OnSessionFinished(ctx context.Context, s *session.Session, elapsed time.Duration) error {
	meta := append(sessionMeta(s), "elapsed_ms", elapsed.Milliseconds())
	return e.record(ctx, ActionSessionFinished, SeverityInfo, OutcomeSuccess,
		ResourceSession, s.ID.String(), CategorySession, nil, meta...)
}

// ── Instance lifecycle hooks ────────────────────────

// OnShutdown implements ext.Shutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionShutdown, SeverityInfo, OutcomeSuccess,
		ResourceInstance, "", CategoryInstance, nil)
}

// ── Internal helpers ────────────────────────────────

func sessionMeta(s *session.Session) []any {
	meta := []any{"pass_id", s.OwnerID.String()}
	if s.Node != nil {
		meta = append(meta,
			"node_id", s.Node.ID.String(),
			"ledger", s.Node.Ledger,
			"consensus", s.Node.Consensus,
		)
	}
	return meta
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
