package relay

import (
	"context"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Sokol111/ecommerce-relay/pkg/relay"

type tracePropagator struct {
	tracer trace.Tracer
	table  string
}

func newTracePropagator(tp trace.TracerProvider, table string) *tracePropagator {
	return &tracePropagator{
		tracer: tp.Tracer(instrumentationName),
		table:  table,
	}
}

// StartDispatchSpan restores the trace context stored with rec and starts a
// span for one delivery attempt as its child. Cancellation still follows ctx.
func (t *tracePropagator) StartDispatchSpan(ctx context.Context, rec *Record) (context.Context, trace.Span) {
	if len(rec.Headers) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(rec.Headers))
	}

	return t.tracer.Start(ctx, "relay.dispatch "+t.table,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("relay.table", t.table),
			attribute.String("messaging.message.id", rec.ID.String()),
			attribute.String("relay.record.type", rec.Type),
			attribute.Int("relay.record.attempts", rec.Attempts),
		),
	)
}

// InjectTraceContext returns a copy of headers carrying the trace context of
// ctx. The writer stores it with each record; sinks use it to forward the
// dispatch span to consumers.
func InjectTraceContext(ctx context.Context, headers map[string]string) map[string]string {
	out := maps.Clone(headers)
	if out == nil {
		out = make(map[string]string)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(out))
	return out
}
