// Package middleware provides composable middleware for session offers.
// Middleware wraps the plugin call synchronously and can observe or alter
// the offer (recover from panics, log, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/xraph/ledgerwork/session"
)

// Handler is the terminal function that offers the session to its plugin.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the session being offered, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, s *session.Session, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, tracing) executes as:
//
//	logging → recover → tracing → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, s *session.Session, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, s, prev)
			}
		}
		return h(ctx)
	}
}

// outcome classifies a finished offer for logs, spans and metrics.
func outcome(s *session.Session, err error) string {
	switch {
	case err != nil:
		return "error"
	case s.Started():
		return "accepted"
	default:
		return "declined"
	}
}
