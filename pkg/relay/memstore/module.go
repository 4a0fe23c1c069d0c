package memstore

import (
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewMemoryStoreModule provides in-memory relay.Stores and a matching
// persistence.TxManager.
func NewMemoryStoreModule() fx.Option {
	return fx.Module("memstore",
		fx.Provide(
			func(log *zap.Logger) relay.Stores {
				log.Warn("relay records are kept in memory and will be lost on restart")
				return relay.Stores{Outbox: New(), Commands: New()}
			},
			NewTxManager,
		),
	)
}
