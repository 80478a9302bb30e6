// Package observability provides OpenTelemetry-based metrics for ledgerwork.
// The MetricsExtension implements lifecycle hooks to record system-wide
// counters for passes, claims, lease releases and work sessions.
//
// For per-offer tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
