package rabbitmq

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRabbitMQSinkModule provides a confirm-mode RabbitMQ client and a
// relay.Sink wrapped with the configured rate limit and circuit breaker.
func NewRabbitMQSinkModule() fx.Option {
	return fx.Module("rabbitmq-sink",
		fx.Provide(
			newConfig,
			provideClient,
			provideSink,
		),
	)
}

func provideClient(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) *Client {
	c := NewClient(conf, log.With(zap.String("component", "rabbitmq")))

	markReady := readiness.AddComponent("rabbitmq")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})

	return c
}

func provideSink(c *Client, conf Config, log *zap.Logger) relay.Sink {
	return sink.Decorate(NewSink(c, conf), "rabbitmq-sink", conf.CircuitBreaker, conf.RateLimit, log)
}
