package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/ledgerwork/session"
)

// Recover returns middleware that recovers from panics in the plugin call.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *session.Session, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("consensus plugin panicked",
					slog.String("consensus", s.Node.Consensus),
					slog.String("node_id", s.Node.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in consensus plugin %s: %v", s.Node.Consensus, r)
			}
		}()
		return next(ctx)
	}
}
