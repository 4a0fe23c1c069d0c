package mongo

import (
	"context"

	mongopersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMongoStoreModule provides relay.Stores on the database from
// persistence/mongo and creates their indexes on start.
func NewMongoStoreModule() fx.Option {
	return fx.Module("relay-mongo",
		fx.Provide(newStores),
		fx.Invoke(ensureIndexes),
	)
}

func newStores(m mongopersist.Mongo, cfg relay.Config) relay.Stores {
	return relay.Stores{
		Outbox:   NewStore(m.Collection(CollectionName(cfg.Outbox.Table))),
		Commands: NewStore(m.Collection(CollectionName(cfg.Commands.Table))),
	}
}

func ensureIndexes(lc fx.Lifecycle, log *zap.Logger, m mongopersist.Mongo, cfg relay.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, table := range []string{cfg.Outbox.Table, cfg.Commands.Table} {
				coll := m.Collection(CollectionName(table))
				if err := EnsureIndexes(ctx, coll); err != nil {
					return err
				}
				log.Info("relay indexes ensured", zap.String("collection", coll.Name()))
			}
			return nil
		},
	})
}
