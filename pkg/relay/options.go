package relay

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Clock returns the current time. Stores receive times from it instead of
// reading the database clock, so tests can pin time.
type Clock func() time.Time

// SystemClock returns the current UTC time truncated to microseconds,
// the resolution of timestamptz.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type options struct {
	clock          Clock
	log            *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	table          string
}

// Option customizes relay components.
type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTable names the table in logs, spans and metric attributes.
func WithTable(name string) Option {
	return func(o *options) { o.table = name }
}

func newOptions(opts []Option) options {
	o := options{table: "outbox"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = SystemClock
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	return o
}
