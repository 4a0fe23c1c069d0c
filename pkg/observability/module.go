// Package observability wires the OpenTelemetry providers consumed by the
// relay: a tracer provider for dispatch spans and a meter provider for the
// relay.* instruments. Both degrade to noop providers when disabled, so relay
// components can always depend on them.
package observability

import (
	"github.com/Sokol111/ecommerce-relay/pkg/observability/config"
	"github.com/Sokol111/ecommerce-relay/pkg/observability/metrics"
	"github.com/Sokol111/ecommerce-relay/pkg/observability/tracing"
	"go.uber.org/fx"
)

type Option = config.Option

// WithConfig skips loading the observability section from viper.
func WithConfig(cfg config.Config) Option { return config.WithConfig(cfg) }

// WithoutTracing forces the noop tracer provider, e.g. for one-shot CLI
// commands and tests.
func WithoutTracing() Option { return config.WithDisableTracing() }

func WithoutMetrics() Option { return config.WithDisableMetrics() }

// NewObservabilityModule requires the core module for viper, the logger and
// readiness.
func NewObservabilityModule(opts ...Option) fx.Option {
	return fx.Module("observability",
		config.NewObservabilityConfigModule(opts...),
		tracing.NewTracingModule(),
		metrics.NewMetricsModule(),
	)
}
