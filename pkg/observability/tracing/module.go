// Package tracing installs the tracer provider used for relay dispatch spans.
package tracing

import (
	"context"
	"fmt"

	coreconfig "github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	otelconfig "github.com/Sokol111/ecommerce-relay/pkg/observability/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type providerParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	Cfg       otelconfig.Config
	AppCfg    coreconfig.AppConfig
	Readiness health.ComponentManager
}

// NewTracingModule provides trace.TracerProvider. The W3C propagator is
// installed even when tracing is disabled: trace headers captured on append
// must still reach consumers.
func NewTracingModule() fx.Option {
	return fx.Options(
		fx.Provide(provideTracerProvider),
		fx.Invoke(func(trace.TracerProvider) {}),
	)
}

func provideTracerProvider(p providerParams) (trace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !p.Cfg.Tracing.Enabled {
		p.Log.Info("tracing disabled, dispatch spans are not recorded")
		return noop.NewTracerProvider(), nil
	}

	tp, err := newSDKProvider(context.Background(), p.Log, p.Cfg, p.AppCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	markReady := p.Readiness.AddComponent(otelconfig.TracingComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			p.Log.Info("tracing started",
				zap.String("endpoint", p.Cfg.OtelCollectorEndpoint),
				zap.Float64("sample-ratio", p.Cfg.Tracing.SampleRatio),
			)
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, otelconfig.DefaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// newSDKProvider samples root spans by ratio; dispatch spans restored from a
// record's trace headers follow the decision of the request that appended it.
// Without a collector endpoint spans are sampled but never exported.
func newSDKProvider(ctx context.Context, log *zap.Logger, cfg otelconfig.Config, app coreconfig.AppConfig) (*sdktrace.TracerProvider, error) {
	res, err := otelconfig.Resource(ctx, app)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRatio))),
	}

	if cfg.OtelCollectorEndpoint == "" {
		log.Warn("tracing enabled without otel-collector-endpoint, spans stay in process")
		return sdktrace.NewTracerProvider(opts...), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelCollectorEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(append(opts, sdktrace.WithBatcher(exp))...), nil
}
