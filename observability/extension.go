package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// meterName is the instrumentation scope name for ledgerwork metrics.
const meterName = "github.com/xraph/ledgerwork"

// Compile-time interface checks.
var (
	_ ext.Extension       = (*MetricsExtension)(nil)
	_ ext.PassStarted     = (*MetricsExtension)(nil)
	_ ext.PassCompleted   = (*MetricsExtension)(nil)
	_ ext.NodeClaimed     = (*MetricsExtension)(nil)
	_ ext.ClaimRetried    = (*MetricsExtension)(nil)
	_ ext.SessionOffered  = (*MetricsExtension)(nil)
	_ ext.SessionDeclined = (*MetricsExtension)(nil)
	_ ext.SessionFinished = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide scheduling metrics with OTel
// instruments. Register it as an extension to track pass rates, claim
// contention, lease releases and work session throughput.
type MetricsExtension struct {
	PassStarted     metric.Int64Counter
	PassCompleted   metric.Int64Counter
	PassDuration    metric.Float64Histogram
	NodeClaimed     metric.Int64Counter
	ClaimRetried    metric.Int64Counter
	LeaseReleased   metric.Int64Counter
	SessionOffered  metric.Int64Counter
	SessionDeclined metric.Int64Counter
	SessionFinished metric.Int64Counter
	SessionActive   metric.Int64UpDownCounter
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. On instrument errors the OTel API returns noop instruments, so the
// extension degrades to a no-op.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}
	m.PassStarted, _ = meter.Int64Counter("ledgerwork.pass.started",
		metric.WithDescription("Scheduling passes started"))
	m.PassCompleted, _ = meter.Int64Counter("ledgerwork.pass.completed",
		metric.WithDescription("Scheduling passes completed, by status"))
	m.PassDuration, _ = meter.Float64Histogram("ledgerwork.pass.duration",
		metric.WithDescription("Duration of scheduling passes in seconds"),
		metric.WithUnit("s"))
	m.NodeClaimed, _ = meter.Int64Counter("ledgerwork.node.claimed",
		metric.WithDescription("Ledger nodes leased by this instance"))
	m.ClaimRetried, _ = meter.Int64Counter("ledgerwork.claim.retried",
		metric.WithDescription("Claim attempts lost to another pass"))
	m.LeaseReleased, _ = meter.Int64Counter("ledgerwork.lease.released",
		metric.WithDescription("Leases cleared at pass end"))
	m.SessionOffered, _ = meter.Int64Counter("ledgerwork.session.offered",
		metric.WithDescription("Work sessions accepted by consensus plugins"))
	m.SessionDeclined, _ = meter.Int64Counter("ledgerwork.session.declined",
		metric.WithDescription("Work sessions declined or failed at offer time"))
	m.SessionFinished, _ = meter.Int64Counter("ledgerwork.session.finished",
		metric.WithDescription("Work sessions that freed their slot"))
	m.SessionActive, _ = meter.Int64UpDownCounter("ledgerwork.session.active",
		metric.WithDescription("Work sessions currently running"))
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Pass lifecycle hooks ────────────────────────────

// OnPassStarted implements ext.PassStarted.
func (m *MetricsExtension) OnPassStarted(ctx context.Context, _ id.PassID, _ time.Time) error {
	m.PassStarted.Add(ctx, 1)
	return nil
}

// OnNodeClaimed implements ext.NodeClaimed.
func (m *MetricsExtension) OnNodeClaimed(ctx context.Context, _ id.PassID, n *node.Node) error {
	m.NodeClaimed.Add(ctx, 1, metric.WithAttributes(attribute.String("consensus", n.Consensus)))
	return nil
}

// OnClaimRetried implements ext.ClaimRetried.
func (m *MetricsExtension) OnClaimRetried(ctx context.Context, _ id.PassID) error {
	m.ClaimRetried.Add(ctx, 1)
	return nil
}

// OnPassCompleted implements ext.PassCompleted.
func (m *MetricsExtension) OnPassCompleted(ctx context.Context, _ id.PassID, _ int, released int64, elapsed time.Duration, passErr error) error {
	status := "ok"
	if passErr != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.PassCompleted.Add(ctx, 1, attrs)
	m.PassDuration.Record(ctx, elapsed.Seconds(), attrs)
	if released > 0 {
		m.LeaseReleased.Add(ctx, released)
	}
	return nil
}

// ── Session lifecycle hooks ─────────────────────────

// OnSessionOffered implements ext.SessionOffered.
func (m *MetricsExtension) OnSessionOffered(ctx context.Context, s *session.Session) error {
	attrs := metric.WithAttributes(attribute.String("consensus", s.Node.Consensus))
	m.SessionOffered.Add(ctx, 1, attrs)
	m.SessionActive.Add(ctx, 1, attrs)
	return nil
}

// OnSessionDeclined implements ext.SessionDeclined.
func (m *MetricsExtension) OnSessionDeclined(ctx context.Context, s *session.Session, _ error) error {
	m.SessionDeclined.Add(ctx, 1, metric.WithAttributes(attribute.String("consensus", s.Node.Consensus)))
	return nil
}

// OnSessionFinished implements ext.SessionFinished.
func (m *MetricsExtension) OnSessionFinished(ctx context.Context, s *session.Session, _ time.Duration) error {
	attrs := metric.WithAttributes(attribute.String("consensus", s.Node.Consensus))
	m.SessionFinished.Add(ctx, 1, attrs)
	// Declined sessions never counted as active.
	if s.Started() {
		m.SessionActive.Add(ctx, -1, attrs)
	}
	return nil
}
