package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/ledgerwork/session"
)

// workPlugin is the built-in consensus plugin. It accepts every offer and
// holds the session for a fixed duration, which is enough to run a fleet
// end to end before real consensus runners are plugged in.
type workPlugin struct {
	name   string
	work   time.Duration
	logger *slog.Logger
}

func newWorkPlugin(cfg PluginConfig, logger *slog.Logger) *workPlugin {
	return &workPlugin{name: cfg.Name, work: cfg.WorkDuration, logger: logger}
}

func (p *workPlugin) Name() string { return p.name }

func (p *workPlugin) ScheduleWork(ctx context.Context, s *session.Session) error {
	if !s.Start() {
		return nil
	}
	p.logger.Debug("work session started",
		slog.String("session_id", s.ID.String()),
		slog.String("node_id", s.Node.ID.String()),
		slog.String("ledger", s.Node.Ledger),
	)

	go func() {
		defer s.Finish()
		if p.work <= 0 {
			return
		}
		timer := time.NewTimer(p.work)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		p.logger.Debug("work session finished",
			slog.String("session_id", s.ID.String()),
			slog.String("node_id", s.Node.ID.String()),
		)
	}()
	return nil
}
