package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/ledgerwork"
)

// Config is the daemon configuration. Every key can be set in the YAML file
// or through a LEDGERWORK_ environment variable (scheduler.ttl becomes
// LEDGERWORK_SCHEDULER_TTL).
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Plugins   []PluginConfig  `mapstructure:"plugins"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects and connects the persistence backend.
type StoreConfig struct {
	// Driver is one of memory, mongo, postgres, bun, sqlite, redis.
	Driver string `mapstructure:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `mapstructure:"dsn"`
	// Database names the Mongo database.
	Database string `mapstructure:"database"`
	// KeyPrefix namespaces Redis keys.
	KeyPrefix string `mapstructure:"key_prefix"`
	// AutoMigrate runs Migrate before serving.
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// ConnectTimeout bounds the startup wait for the store.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// SchedulerConfig mirrors ledgerwork.Config.
type SchedulerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	TTL                 time.Duration `mapstructure:"ttl"`
	Concurrency         int           `mapstructure:"concurrency"`
	Schedule            string        `mapstructure:"schedule"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// HTTPConfig configures the admin listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// PassRateLimit caps POST /v1/passes per second. Zero means unlimited.
	PassRateLimit float64 `mapstructure:"pass_rate_limit"`
	PassBurst     int     `mapstructure:"pass_burst"`
}

// AuditConfig turns on audit events written to the process log.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Actions limits the recorded actions. Empty records all of them.
	Actions []string `mapstructure:"actions"`
}

// PluginConfig registers a built-in consensus plugin under Name.
type PluginConfig struct {
	Name         string        `mapstructure:"name"`
	WorkDuration time.Duration `mapstructure:"work_duration"`
}

func setDefaults(v *viper.Viper) {
	def := ledgerwork.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database", "ledgerwork")
	v.SetDefault("store.key_prefix", "ledgerwork:")
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("store.connect_timeout", time.Minute)

	v.SetDefault("scheduler.enabled", def.Enabled)
	v.SetDefault("scheduler.ttl", def.TTL)
	v.SetDefault("scheduler.concurrency", def.WorkSessionConcurrencyPerInstance)
	v.SetDefault("scheduler.schedule", def.TriggerSchedule)
	v.SetDefault("scheduler.shutdown_grace_period", def.ShutdownGracePeriod)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.pass_rate_limit", 0)
	v.SetDefault("http.pass_burst", 1)

	v.SetDefault("audit.enabled", false)
}

// loadConfig decodes v into a Config and validates the scheduler section.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Scheduler.ledgerwork().Validate(); err != nil {
		return Config{}, err
	}
	for i, p := range cfg.Plugins {
		if p.Name == "" {
			return Config{}, fmt.Errorf("%w: plugins[%d] has no name", ledgerwork.ErrInvalidConfig, i)
		}
	}
	return cfg, nil
}

func (c SchedulerConfig) ledgerwork() ledgerwork.Config {
	return ledgerwork.Config{
		Enabled:                           c.Enabled,
		TTL:                               c.TTL,
		WorkSessionConcurrencyPerInstance: c.Concurrency,
		TriggerSchedule:                   c.Schedule,
		ShutdownGracePeriod:               c.ShutdownGracePeriod,
	}
}
