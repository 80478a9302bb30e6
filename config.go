package ledgerwork

import (
	"fmt"
	"time"
)

// Config holds configuration for an Instance.
type Config struct {
	// Enabled turns consensus work scheduling on for this instance. When
	// false the engine starts without a trigger and never claims nodes.
	Enabled bool

	// TTL has two meanings. It bounds how long a single scheduling pass
	// keeps claiming, and it is the lease duration granted to every node
	// claimed during that pass. Leases acquired near the end of a pass
	// therefore expire close to when the pass itself would be stale.
	TTL time.Duration

	// WorkSessionConcurrencyPerInstance caps the number of work sessions
	// offered by this process that may be in flight at once.
	WorkSessionConcurrencyPerInstance int

	// TriggerSchedule is the cron expression or descriptor that starts a
	// scheduling pass (e.g. "@every 100ms").
	TriggerSchedule string

	// ShutdownGracePeriod is how long shutdown waits after raising the
	// shutdown flag so in-flight passes can finish their cleanup.
	ShutdownGracePeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                           true,
		TTL:                               30 * time.Second,
		WorkSessionConcurrencyPerInstance: 1,
		TriggerSchedule:                   "@every 100ms",
		ShutdownGracePeriod:               3 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	}
	if c.WorkSessionConcurrencyPerInstance < 1 {
		return fmt.Errorf("%w: work session concurrency must be at least 1, got %d",
			ErrInvalidConfig, c.WorkSessionConcurrencyPerInstance)
	}
	if c.Enabled && c.TriggerSchedule == "" {
		return fmt.Errorf("%w: trigger schedule is required when enabled", ErrInvalidConfig)
	}
	if c.ShutdownGracePeriod < 0 {
		return fmt.Errorf("%w: shutdown grace period must not be negative", ErrInvalidConfig)
	}
	return nil
}
