// Package metrics installs the meter provider behind the relay.* instruments.
package metrics

import (
	"context"
	"fmt"

	coreconfig "github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	otelconfig "github.com/Sokol111/ecommerce-relay/pkg/observability/config"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
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

// NewMetricsModule provides metric.MeterProvider, a noop one when metrics
// are disabled.
func NewMetricsModule() fx.Option {
	return fx.Options(
		fx.Provide(provideMeterProvider),
		fx.Invoke(func(metric.MeterProvider) {}),
	)
}

func provideMeterProvider(p providerParams) (metric.MeterProvider, error) {
	if !p.Cfg.Metrics.Enabled {
		p.Log.Info("metrics disabled, relay instruments are noop")
		return noop.NewMeterProvider(), nil
	}

	mp, err := newSDKProvider(context.Background(), p.Cfg, p.AppCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	markReady := p.Readiness.AddComponent(otelconfig.MetricsComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(mp)
			if p.Cfg.Metrics.Runtime {
				err := otelruntime.Start(
					otelruntime.WithMeterProvider(mp),
					otelruntime.WithMinimumReadMemStatsInterval(otelconfig.DefaultRuntimeStatsInterval),
				)
				if err != nil {
					return fmt.Errorf("failed to start runtime metrics: %w", err)
				}
			}
			p.Log.Info("metrics started",
				zap.String("endpoint", p.Cfg.OtelCollectorEndpoint),
				zap.Duration("interval", p.Cfg.Metrics.Interval),
				zap.Bool("runtime", p.Cfg.Metrics.Runtime),
			)
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, otelconfig.DefaultShutdownTimeout)
			defer cancel()
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}

func newSDKProvider(ctx context.Context, cfg otelconfig.Config, app coreconfig.AppConfig) (*sdkmetric.MeterProvider, error) {
	res, err := otelconfig.Resource(ctx, app)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OtelCollectorEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Metrics.Interval))),
	), nil
}
