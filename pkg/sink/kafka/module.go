package kafka

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewKafkaSinkModule provides the Kafka producer and a relay.Sink wrapped
// with the configured rate limit and circuit breaker.
func NewKafkaSinkModule() fx.Option {
	return fx.Module("kafka-sink",
		fx.Provide(
			newConfig,
			provideProducer,
			provideSink,
		),
	)
}

func provideProducer(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (Producer, error) {
	p, err := newProducer(conf)
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("component", "kafka-producer"))
	markReady := readiness.AddComponent("kafka-producer")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := waitForBrokers(ctx, p, log, conf.ReadinessTimeout, conf.FailOnBrokerError); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if left := p.Flush(int(conf.FlushTimeout.Milliseconds())); left > 0 {
				log.Warn("kafka producer closed with undelivered messages", zap.Int("count", left))
			}
			p.Close()
			return nil
		},
	})

	return p, nil
}

func provideSink(p Producer, conf Config, log *zap.Logger) relay.Sink {
	return sink.Decorate(NewSink(p, conf), "kafka-sink", conf.CircuitBreaker, conf.RateLimit, log)
}
