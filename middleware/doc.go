// Package middleware provides composable middleware around work session
// offers.
//
// A [Middleware] is a function that wraps the call into a consensus
// plugin's ScheduleWork. Middleware are composed into a chain using [Chain]
// and applied to every offer. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → plugin
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs node, plugin and outcome of each offer
//   - [Recover]: catches plugin panics and converts them to errors
//   - [Tracing]: wraps the offer in an OpenTelemetry span
//   - [Metrics]: records per-offer duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, s *session.Session, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing, s.Started() tells whether the plugin accepted
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting. A short-circuited offer is a decline: the session is
// finished by the worker pool and its node released at pass end.
package middleware
