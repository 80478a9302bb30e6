package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/api"
	audithook "github.com/xraph/ledgerwork/audit_hook"
	"github.com/xraph/ledgerwork/backoff"
	"github.com/xraph/ledgerwork/engine"
	"github.com/xraph/ledgerwork/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the admin API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "admin HTTP listen address")
	serveCmd.Flags().String("store", "memory", "store driver (memory, mongo, postgres, bun, sqlite, redis)")
	serveCmd.Flags().String("dsn", "", "store connection string")
	serveCmd.Flags().Int("concurrency", 1, "work sessions in flight per instance")
	serveCmd.Flags().Bool("enabled", true, "claim and offer ledger nodes")

	_ = viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.driver", serveCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("store.dsn", serveCmd.Flags().Lookup("dsn"))
	_ = viper.BindPFlag("scheduler.concurrency", serveCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("scheduler.enabled", serveCmd.Flags().Lookup("enabled"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	logger.Info("ledgerworkd starting",
		slog.String("version", appVersion),
		slog.String("commit", appCommit),
		slog.String("store", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := connectStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}

	// Metrics: otel instruments exported through a private Prometheus registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	eng, err := buildEngine(cfg, s, logger, engine.WithMeterProvider(mp))
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := eng.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	router.Mount("/", api.New(eng, apiOptions(cfg.HTTP, logger)...).Handler())

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.RequestTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("admin API listening", slog.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("ledgerworkd shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			eng.Shutdown(shutdownCtx),
			mp.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("ledgerworkd stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("ledgerworkd stopped")
	return nil
}

// connectStore opens the store, waits until it answers and migrates it when
// auto_migrate is set.
func connectStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	wait := backoff.DefaultConfig()
	wait.MaxElapsed = cfg.ConnectTimeout
	if err := backoff.WaitReady(ctx, s.Ping, wait, logger); err != nil {
		_ = s.Close()
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %w", ledgerwork.ErrMigrationFailed, err)
		}
	}
	return s, nil
}

// buildEngine assembles the instance and engine for cfg.
func buildEngine(cfg Config, s store.Store, logger *slog.Logger, opts ...engine.Option) (*engine.Engine, error) {
	inst, err := ledgerwork.New(
		ledgerwork.WithConfig(cfg.Scheduler.ledgerwork()),
		ledgerwork.WithLogger(logger),
		ledgerwork.WithStore(s),
	)
	if err != nil {
		return nil, err
	}
	for _, p := range cfg.Plugins {
		opts = append(opts, engine.WithPlugin(newWorkPlugin(p, logger)))
	}
	if cfg.Audit.Enabled {
		var auditOpts []audithook.Option
		if len(cfg.Audit.Actions) > 0 {
			auditOpts = append(auditOpts, audithook.WithActions(cfg.Audit.Actions...))
		}
		auditOpts = append(auditOpts, audithook.WithLogger(logger))
		rec := audithook.SlogRecorder(logger.With(slog.String("component", "audit")))
		opts = append(opts, engine.WithExtension(audithook.New(rec, auditOpts...)))
	}
	return engine.Build(inst, opts...)
}

func apiOptions(cfg HTTPConfig, logger *slog.Logger) []api.Option {
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.PassRateLimit > 0 {
		opts = append(opts, api.WithPassRateLimit(cfg.PassRateLimit, cfg.PassBurst))
	}
	return opts
}
