// Package idempotency keeps command handlers from running twice for the
// same record when a lease is taken over while its holder is still working.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInProgress is returned, wrapped in relay.ErrSinkUnavailable, while
// another worker holds the command's processing marker.
var ErrInProgress = errors.New("command is being handled by another worker")

const (
	stateProcessing = "processing"
	stateDone       = "done"
)

// Guard records handled command ids in Redis.
type Guard struct {
	client        redis.Cmdable
	prefix        string
	processingTTL time.Duration
	doneTTL       time.Duration
	log           *zap.Logger
}

func NewGuard(client redis.Cmdable, cfg Config, log *zap.Logger) *Guard {
	return &Guard{
		client:        client,
		prefix:        cfg.KeyPrefix,
		processingTTL: cfg.ProcessingTTL,
		doneTTL:       cfg.DoneTTL,
		log:           log.With(zap.String("component", "idempotency")),
	}
}

// Middleware is a relay.CommandMiddleware.
func (g *Guard) Middleware(commandType string, next relay.CommandHandler) relay.CommandHandler {
	return relay.CommandHandlerFunc(func(ctx context.Context, rec *relay.Record) error {
		return g.handle(ctx, commandType, rec, next)
	})
}

func (g *Guard) key(commandType string, rec *relay.Record) string {
	return g.prefix + commandType + ":" + rec.ID.String()
}

func (g *Guard) handle(ctx context.Context, commandType string, rec *relay.Record, next relay.CommandHandler) error {
	key := g.key(commandType, rec)

	claimed, err := g.client.SetNX(ctx, key, stateProcessing, g.processingTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: idempotency claim: %w", relay.ErrSinkUnavailable, err)
	}

	if !claimed {
		state, err := g.client.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// marker expired between SETNX and GET
			return fmt.Errorf("%w: %w", relay.ErrSinkUnavailable, ErrInProgress)
		case err != nil:
			return fmt.Errorf("%w: idempotency lookup: %w", relay.ErrSinkUnavailable, err)
		case state == stateDone:
			g.log.Info("command already handled, skipping",
				zap.Stringer("id", rec.ID),
				zap.String("type", commandType),
			)
			return nil
		default:
			return fmt.Errorf("%w: %w", relay.ErrSinkUnavailable, ErrInProgress)
		}
	}

	if err := next.Handle(ctx, rec); err != nil {
		if delErr := g.client.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			g.log.Warn("failed to clear idempotency marker", zap.String("key", key), zap.Error(delErr))
		}
		return err
	}

	if err := g.client.Set(context.WithoutCancel(ctx), key, stateDone, g.doneTTL).Err(); err != nil {
		g.log.Warn("failed to mark command handled", zap.String("key", key), zap.Error(err))
	}
	return nil
}
