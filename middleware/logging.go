package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/ledgerwork/session"
)

// Logging returns middleware that logs each offer and its outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *session.Session, next Handler) error {
		logger.Debug("offering work session",
			slog.String("session_id", s.ID.String()),
			slog.String("node_id", s.Node.ID.String()),
			slog.String("consensus", s.Node.Consensus),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		switch result := outcome(s, err); result {
		case "error":
			logger.Error("work session offer failed",
				slog.String("session_id", s.ID.String()),
				slog.String("node_id", s.Node.ID.String()),
				slog.String("consensus", s.Node.Consensus),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		default:
			logger.Info("work session offered",
				slog.String("session_id", s.ID.String()),
				slog.String("node_id", s.Node.ID.String()),
				slog.String("consensus", s.Node.Consensus),
				slog.String("outcome", result),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
