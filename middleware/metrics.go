package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/ledgerwork/session"
)

// meterName is the instrumentation scope name for ledgerwork metrics.
const meterName = "github.com/xraph/ledgerwork"

// Metrics returns middleware that records per-offer metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - ledgerwork.offer.duration (Float64Histogram): time spent inside
//     ScheduleWork in seconds, with attributes: consensus, outcome
//   - ledgerwork.offer.total (Int64Counter): total offers, with attributes:
//     consensus, outcome ("accepted", "declined" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"ledgerwork.offer.duration",
		metric.WithDescription("Duration of work session offers in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	offers, oErr := meter.Int64Counter(
		"ledgerwork.offer.total",
		metric.WithDescription("Total number of work session offers"),
		metric.WithUnit("{offer}"),
	)
	_ = oErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, s *session.Session, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("consensus", s.Node.Consensus),
			attribute.String("outcome", outcome(s, err)),
		)

		duration.Record(ctx, elapsed, attrs)
		offers.Add(ctx, 1, attrs)

		return err
	}
}
