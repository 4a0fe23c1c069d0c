package idempotency

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewIdempotencyModule guards every registered command handler with a
// Redis-backed Guard.
func NewIdempotencyModule() fx.Option {
	return fx.Module("idempotency",
		fx.Provide(
			newConfig,
			provideClient,
			func(c *redis.Client, cfg Config, log *zap.Logger) *Guard {
				return NewGuard(c, cfg, log)
			},
			func(g *Guard) relay.CommandMiddleware { return g.Middleware },
		),
	)
}

func provideClient(lc fx.Lifecycle, log *zap.Logger, cfg Config, readiness health.ComponentManager) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	markReady := readiness.AddComponent("redis")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("failed to ping redis: %w", err)
			}
			log.Info("connected to redis", zap.String("addr", cfg.Addr))
			markReady()
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}
