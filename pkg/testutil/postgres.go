package testutil

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	pgpersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	relaypg "github.com/Sokol111/ecommerce-relay/pkg/relay/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/testutil/container"
	"go.uber.org/zap"
)

// PostgresEnv is a migrated Postgres with both relay tables, for
// integration tests. Call Reset before each test and Close once.
type PostgresEnv struct {
	Container *container.PostgresContainer
	Tx        persistence.TxManager
	Stores    relay.Stores
}

// StartPostgres starts a container, applies the relay migrations and
// builds stores for the default tables.
func StartPostgres(ctx context.Context, opts ...container.PostgresContainerOption) (*PostgresEnv, error) {
	pg, err := container.StartPostgresContainer(ctx, opts...)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if err := relaypg.Migrate(pgpersist.NewMigrator(pg.Pool, log)); err != nil {
		_ = pg.Terminate(ctx)
		return nil, fmt.Errorf("failed to migrate relay schema: %w", err)
	}

	outbox, err := relaypg.NewStore(pg.Pool, relay.DefaultOutboxTable)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}
	commands, err := relaypg.NewStore(pg.Pool, relay.DefaultCommandsTable)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}

	return &PostgresEnv{
		Container: pg,
		Tx:        pgpersist.NewTxManager(pg.Pool, log),
		Stores:    relay.Stores{Outbox: outbox, Commands: commands},
	}, nil
}

// Reset empties both tables.
func (e *PostgresEnv) Reset(ctx context.Context) error {
	if err := e.Stores.Outbox.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge outbox: %w", err)
	}
	if err := e.Stores.Commands.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge commands: %w", err)
	}
	return nil
}

func (e *PostgresEnv) Close(ctx context.Context) error {
	return e.Container.Terminate(ctx)
}
