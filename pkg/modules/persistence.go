package modules

import (
	"fmt"

	mongopersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/mongo"
	pgpersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/relay/memstore"
	relaymongo "github.com/Sokol111/ecommerce-relay/pkg/relay/mongo"
	relaypg "github.com/Sokol111/ecommerce-relay/pkg/relay/postgres"
	"go.uber.org/fx"
)

// NewPersistenceModule provides the database connection, TxManager and
// relay.Stores of the selected backend.
func NewPersistenceModule(storage string) (fx.Option, error) {
	switch storage {
	case relay.StoragePostgres:
		return fx.Options(
			pgpersist.NewPostgresModule(),
			relaypg.NewPostgresStoreModule(),
		), nil
	case relay.StorageMongo:
		return fx.Options(
			mongopersist.NewMongoModule(),
			relaymongo.NewMongoStoreModule(),
		), nil
	case relay.StorageMemory:
		return memstore.NewMemoryStoreModule(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", relay.ErrInvalidArgument, storage)
	}
}
