package postgres

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option configures NewPostgresModule.
type Option func(*moduleOptions)

// WithPostgresConfig supplies a static Config instead of reading viper.
func WithPostgresConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewPostgresModule provides the pool, a persistence.TxManager and a Migrator.
func NewPostgresModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Module("postgres",
		configProvider,
		fx.Provide(
			providePostgres,
			func(p *Postgres) *pgxpool.Pool { return p.Pool() },
			func(pool *pgxpool.Pool, log *zap.Logger) persistence.TxManager {
				return NewTxManager(pool, log)
			},
			NewMigrator,
		),
	)
}

func providePostgres(lc fx.Lifecycle, log *zap.Logger, conf Config, readiness health.ComponentManager) (*Postgres, error) {
	p, err := New(log, conf)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("postgres")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(context.Context) error {
			p.Close()
			return nil
		},
	})

	return p, nil
}
