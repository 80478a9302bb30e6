package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/ledgerwork/session"
)

// tracerName is the instrumentation scope name for ledgerwork tracing.
const tracerName = "github.com/xraph/ledgerwork"

// Tracing returns middleware that wraps each offer in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: ledgerwork.session.id, ledgerwork.pass.id,
// ledgerwork.node.id, ledgerwork.ledger, ledgerwork.consensus and, once the
// plugin returns, ledgerwork.offer.outcome.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, s *session.Session, next Handler) error {
		ctx, span := tracer.Start(ctx, "ledgerwork.session.offer",
			trace.WithAttributes(
				attribute.String("ledgerwork.session.id", s.ID.String()),
				attribute.String("ledgerwork.pass.id", s.OwnerID.String()),
				attribute.String("ledgerwork.node.id", s.Node.ID.String()),
				attribute.String("ledgerwork.ledger", s.Node.Ledger),
				attribute.String("ledgerwork.consensus", s.Node.Consensus),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.String("ledgerwork.offer.outcome", outcome(s, err)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
