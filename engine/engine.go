package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	mw "github.com/xraph/ledgerwork/middleware"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/observability"
	"github.com/xraph/ledgerwork/scheduler"
	"github.com/xraph/ledgerwork/trigger"
	"github.com/xraph/ledgerwork/worker"
)

// instrumentationName is the OTel tracer and meter name used by the engine.
const instrumentationName = "github.com/xraph/ledgerwork"

// Store is what the engine needs from a backend: node records plus the
// lease operations used by scheduling passes.
type Store interface {
	scheduler.Store
	node.Store
}

// Engine wraps an Instance with typed subsystem access.
// Use Build() to create one from an Instance.
type Engine struct {
	inst       *ledgerwork.Instance
	store      Store
	extensions *ext.Registry
	plugins    *consensus.Registry
	state      *scheduler.State
	scheduler  *scheduler.Scheduler
	pool       *worker.Pool
	trigger    *trigger.Trigger
	mws        []mw.Middleware
	logger     *slog.Logger

	// optErr collects failures from options such as duplicate plugins.
	optErr error

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlugin registers a consensus plugin with the engine.
func WithPlugin(p consensus.Plugin) Option {
	return func(eng *Engine) {
		if err := eng.plugins.Register(p); err != nil {
			eng.optErr = errors.Join(eng.optErr, err)
		}
	}
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's offer chain. Custom
// middleware runs inside the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// Both the metrics middleware and the observability extension use it.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Instance.
// The Instance's store must implement engine.Store.
func Build(inst *ledgerwork.Instance, opts ...Option) (*Engine, error) {
	logger := inst.Logger()
	storer := inst.Store()

	if storer == nil {
		return nil, ledgerwork.ErrNoStore
	}

	st, ok := storer.(Store)
	if !ok {
		return nil, fmt.Errorf("ledgerwork: store %T does not implement node and lease stores", storer)
	}

	eng := &Engine{
		inst:       inst,
		store:      st,
		extensions: ext.NewRegistry(logger),
		plugins:    consensus.NewRegistry(),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}
	if eng.optErr != nil {
		return nil, eng.optErr
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Default middleware stack: recover → tracing → metrics → logging.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	cfg := inst.Config()
	executor := worker.NewExecutor(eng.extensions, logger, allMws...)
	eng.pool = worker.NewPool(executor, logger)
	eng.state = scheduler.NewState(cfg.WorkSessionConcurrencyPerInstance)
	eng.scheduler = scheduler.New(st, eng.plugins, eng.pool, eng.extensions, eng.state, logger,
		scheduler.WithTTL(cfg.TTL),
	)

	trg, err := trigger.New(func(ctx context.Context, passID id.PassID) error {
		_, passErr := eng.scheduler.RunPass(ctx, passID)
		return passErr
	}, cfg.TriggerSchedule, logger)
	if err != nil {
		return nil, err
	}
	eng.trigger = trg

	// The pool starts before the trigger so the first pass can offer, and
	// stops after it.
	if cfg.Enabled {
		inst.AddRunner(eng.pool)
		inst.AddRunner(eng.trigger)
	}
	inst.SetExtensions(eng.extensions)

	return eng, nil
}

// RegisterPlugin registers a consensus plugin after the engine was built.
func (eng *Engine) RegisterPlugin(p consensus.Plugin) error {
	return eng.plugins.Register(p)
}

// Start marks the instance ready. When scheduling is enabled the offer pool
// and the recurring trigger start; otherwise only the node API is usable.
func (eng *Engine) Start(ctx context.Context) error {
	cfg := eng.inst.Config()
	if err := eng.inst.Start(ctx); err != nil {
		return fmt.Errorf("start instance: %w", err)
	}
	if !cfg.Enabled {
		eng.logger.Info("consensus work scheduling disabled")
		return nil
	}
	eng.logger.Info("consensus work scheduling started",
		slog.Int("concurrency", cfg.WorkSessionConcurrencyPerInstance),
		slog.Duration("ttl", cfg.TTL),
		slog.String("schedule", cfg.TriggerSchedule),
	)
	return nil
}

// Shutdown stops scheduling. It raises the shutdown flag at once so no new
// pass starts and a running pass stops at its next iteration, waits the
// grace period (or until ctx ends) for that pass to release its leases, then
// stops the trigger and the pool and closes the store.
func (eng *Engine) Shutdown(ctx context.Context) error {
	eng.state.BeginShutdown()

	cfg := eng.inst.Config()
	if cfg.Enabled && cfg.ShutdownGracePeriod > 0 {
		eng.logger.Info("consensus work scheduling shutting down",
			slog.Duration("grace_period", cfg.ShutdownGracePeriod),
			slog.Int("running_sessions", eng.state.Gate().Running()),
		)
		timer := time.NewTimer(cfg.ShutdownGracePeriod)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	return eng.inst.Stop(ctx)
}

// RunPass runs one scheduling pass immediately, outside the trigger's
// schedule. It fails with ErrPassInProgress if a pass is already running.
func (eng *Engine) RunPass(ctx context.Context) (scheduler.Report, error) {
	if !eng.inst.Config().Enabled {
		return scheduler.Report{}, ledgerwork.ErrDisabled
	}
	if eng.state.ShuttingDown() {
		return scheduler.Report{}, ledgerwork.ErrShuttingDown
	}
	return eng.scheduler.RunPass(ctx, id.NewPassID())
}

// ──────────────────────────────────────────────────
// Ledger nodes
// ──────────────────────────────────────────────────

// CreateNode persists a new ledger node, assigning an ID and timestamps
// when they are unset.
func (eng *Engine) CreateNode(ctx context.Context, n *node.Node) error {
	if n.ID.IsNil() {
		n.ID = id.NewNodeID()
	}
	if n.CreatedAt.IsZero() {
		n.Entity = ledgerwork.NewEntity()
	}
	if err := eng.store.CreateNode(ctx, n); err != nil {
		return err
	}
	eng.logger.Debug("ledger node created",
		slog.String("node_id", n.ID.String()),
		slog.String("ledger", n.Ledger),
		slog.String("consensus", n.Consensus),
	)
	return nil
}

// GetNode returns a ledger node by ID.
func (eng *Engine) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	return eng.store.GetNode(ctx, nodeID)
}

// DeleteNode tombstones a ledger node so it is never claimed again.
func (eng *Engine) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	return eng.store.DeleteNode(ctx, nodeID)
}

// ListNodes lists ledger nodes.
func (eng *Engine) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	return eng.store.ListNodes(ctx, opts)
}

// ──────────────────────────────────────────────────
// Introspection
// ──────────────────────────────────────────────────

// Stats is a point-in-time view of the instance's scheduling state.
type Stats struct {
	Enabled         bool              `json:"enabled"`
	ShuttingDown    bool              `json:"shutting_down"`
	RunningSessions int               `json:"running_sessions"`
	Concurrency     int               `json:"concurrency"`
	ActiveSessions  int               `json:"active_sessions"`
	PassesFired     int64             `json:"passes_fired"`
	PassesSkipped   int64             `json:"passes_skipped"`
	Plugins         []string          `json:"plugins"`
	LastPass        *scheduler.Report `json:"last_pass,omitempty"`
}

// Stats returns the current scheduling statistics.
func (eng *Engine) Stats() Stats {
	st := Stats{
		Enabled:         eng.inst.Config().Enabled,
		ShuttingDown:    eng.state.ShuttingDown(),
		RunningSessions: eng.state.Gate().Running(),
		Concurrency:     eng.state.Gate().Limit(),
		ActiveSessions:  eng.pool.Active(),
		PassesFired:     eng.trigger.Fired(),
		PassesSkipped:   eng.trigger.Skipped(),
		Plugins:         eng.plugins.Names(),
	}
	if rep, ok := eng.scheduler.LastReport(); ok {
		st.LastPass = &rep
	}
	return st
}

// Ping checks the store connection.
func (eng *Engine) Ping(ctx context.Context) error { return eng.inst.Store().Ping(ctx) }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Plugins returns the consensus plugin registry.
func (eng *Engine) Plugins() *consensus.Registry { return eng.plugins }

// Instance returns the underlying Instance.
func (eng *Engine) Instance() *ledgerwork.Instance { return eng.inst }

// Scheduler returns the pass scheduler.
func (eng *Engine) Scheduler() *scheduler.Scheduler { return eng.scheduler }

// State returns the process-wide scheduling state.
func (eng *Engine) State() *scheduler.State { return eng.state }

// Pool returns the offer pool.
func (eng *Engine) Pool() *worker.Pool { return eng.pool }

// Trigger returns the recurring pass trigger.
func (eng *Engine) Trigger() *trigger.Trigger { return eng.trigger }
