package ledgerwork

import (
	"context"
	"log/slog"
	"time"
)

// Option configures an Instance.
type Option func(*Instance) error

// Storer is the minimal store interface held by the Instance.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used by subsystem layers that don't create import
// cycles.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// runner is an internal interface for the scheduling lifecycle (trigger
// and offer pool) installed by the engine package.
type runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Instance is one process instance of the scheduler fleet. It owns the
// configuration, the logger and the store handle; the engine package wires
// the scheduling subsystems into it.
type Instance struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	runners    []runner

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Instance with the given options.
func New(opts ...Option) (*Instance, error) {
	inst := &Instance{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(inst); err != nil {
			return nil, err
		}
	}
	if err := inst.config.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Logger returns the instance's logger.
func (inst *Instance) Logger() *slog.Logger { return inst.logger }

// Store returns the instance's store.
func (inst *Instance) Store() Storer { return inst.store }

// Config returns a copy of the instance's configuration.
func (inst *Instance) Config() Config { return inst.config }

// AddRunner appends a lifecycle component (called by the engine package).
// Runners start in insertion order and stop in reverse order.
func (inst *Instance) AddRunner(r runner) { inst.runners = append(inst.runners, r) }

// SetExtensions sets the extension emitter (called by the engine package).
func (inst *Instance) SetExtensions(e extensionEmitter) { inst.extensions = e }

// Start starts every registered runner.
func (inst *Instance) Start(ctx context.Context) error {
	if inst.store == nil {
		return ErrNoStore
	}
	for _, r := range inst.runners {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	inst.started = true
	return nil
}

// Stop stops the runners, emits the shutdown hook and closes the store.
func (inst *Instance) Stop(ctx context.Context) error {
	if inst.started {
		for i := len(inst.runners) - 1; i >= 0; i-- {
			if err := inst.runners[i].Stop(ctx); err != nil {
				inst.logger.Error("runner stop error", slog.String("error", err.Error()))
			}
		}
		inst.started = false
	}
	if inst.extensions != nil {
		inst.extensions.EmitShutdown(ctx)
	}
	if inst.store != nil {
		return inst.store.Close()
	}
	return nil
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(inst *Instance) error {
		inst.config = cfg
		return nil
	}
}

// WithEnabled turns consensus work scheduling on or off.
func WithEnabled(enabled bool) Option {
	return func(inst *Instance) error {
		inst.config.Enabled = enabled
		return nil
	}
}

// WithConcurrency sets the per-instance work session concurrency.
func WithConcurrency(n int) Option {
	return func(inst *Instance) error {
		inst.config.WorkSessionConcurrencyPerInstance = n
		return nil
	}
}

// WithTTL sets the pass deadline and lease duration.
func WithTTL(d time.Duration) Option {
	return func(inst *Instance) error {
		inst.config.TTL = d
		return nil
	}
}

// WithTriggerSchedule sets the cron expression that starts passes.
func WithTriggerSchedule(expr string) Option {
	return func(inst *Instance) error {
		inst.config.TriggerSchedule = expr
		return nil
	}
}

// WithShutdownGracePeriod sets the wait between raising the shutdown flag
// and stopping the runners.
func WithShutdownGracePeriod(d time.Duration) Option {
	return func(inst *Instance) error {
		inst.config.ShutdownGracePeriod = d
		return nil
	}
}

// WithLogger sets the structured logger for the instance.
func WithLogger(l *slog.Logger) Option {
	return func(inst *Instance) error {
		inst.logger = l
		return nil
	}
}

// WithStore sets the persistence backend for the instance.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(inst *Instance) error {
		inst.store = s
		return nil
	}
}
