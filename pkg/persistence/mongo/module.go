package mongo

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option configures NewMongoModule.
type Option func(*moduleOptions)

// WithMongoConfig supplies a static Config instead of reading viper.
func WithMongoConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewMongoModule provides Mongo and a session-based persistence.TxManager.
func NewMongoModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Module("mongo",
		configProvider,
		fx.Provide(
			provideMongo,
			func(m Mongo, conf Config, log *zap.Logger) persistence.TxManager {
				return NewTxManager(m, conf.TxMaxRetries, log)
			},
		),
	)
}

func provideMongo(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (Mongo, error) {
	m, err := newMongo(log, conf)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("mongo")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.Connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: m.Disconnect,
	})

	return m, nil
}
