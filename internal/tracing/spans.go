package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartTickSpan creates a child span for a single worker tick (spec.md
// §4.3): one span per license per tick, covering the heartbeat check,
// reconciliation, and fan-out in sequence.
func StartTickSpan(ctx context.Context, license, tickID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "wlsc.tick",
		trace.WithAttributes(
			attribute.String("wlsc.license", license),
			attribute.String("wlsc.tick_id", tickID),
		),
	)
}

// StartReconcileSpan creates a child span for a tick's reconciliation step
// (spec.md §4.3.2): the storage read and assigned/pending/expired fold.
func StartReconcileSpan(ctx context.Context, license string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "wlsc.reconcile",
		trace.WithAttributes(attribute.String("wlsc.license", license)),
	)
}

// StartFanoutSpan creates a child span for a tick's fan-out step (spec.md
// §4.3.3): the concurrent InitializePlayer/HeartbeatPlayer streams.
func StartFanoutSpan(ctx context.Context, license string, pending, assigned int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "wlsc.fanout",
		trace.WithAttributes(
			attribute.String("wlsc.license", license),
			attribute.Int("wlsc.pending_count", pending),
			attribute.Int("wlsc.assigned_count", assigned),
		),
	)
}

// StartPlatformCallSpan creates a child span for a single outbound call to
// the upstream game platform (spec.md §4 C1): entitlement validation or
// ticket creation for one account.
func StartPlatformCallSpan(ctx context.Context, operation, license, accountID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "platform."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("wlsc.license", license),
			attribute.String("wlsc.account_id", accountID),
		),
	)
}

// InjectHeaders injects the current trace context (traceparent, tracestate)
// into the given HTTP request headers so the upstream service can continue
// the trace.
func InjectHeaders(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// SetTickAttributes records a tick's population and termination outcome on
// the current span.
func SetTickAttributes(ctx context.Context, assigned, pending int, state string) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("wlsc.assigned_count", assigned),
		attribute.Int("wlsc.pending_count", pending),
		attribute.String("wlsc.state", state),
	)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
