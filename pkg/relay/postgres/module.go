package postgres

import (
	"context"

	pgpersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPostgresStoreModule provides relay.Stores backed by the pool from
// persistence/postgres and applies the relay schema on start when
// postgres.migrate-on-start is set.
func NewPostgresStoreModule() fx.Option {
	return fx.Module("relay-postgres",
		fx.Provide(newStores),
		fx.Invoke(runMigrations),
	)
}

func newStores(pool *pgxpool.Pool, cfg relay.Config) (relay.Stores, error) {
	outbox, err := NewStore(pool, cfg.Outbox.Table)
	if err != nil {
		return relay.Stores{}, err
	}
	commands, err := NewStore(pool, cfg.Commands.Table)
	if err != nil {
		return relay.Stores{}, err
	}
	return relay.Stores{Outbox: outbox, Commands: commands}, nil
}

func runMigrations(lc fx.Lifecycle, log *zap.Logger, conf pgpersist.Config, migrator pgpersist.Migrator) {
	if !conf.MigrateOnStart {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("running relay migrations")
			return Migrate(migrator)
		},
	})
}

// Migrate applies the embedded relay schema.
func Migrate(migrator pgpersist.Migrator) error {
	return migrator.UpFromFS(MigrationsTable, Migrations, MigrationsDir)
}

// Rollback reverts every embedded relay migration.
func Rollback(migrator pgpersist.Migrator) error {
	return migrator.DownFromFS(MigrationsTable, Migrations, MigrationsDir)
}

// SchemaVersion reports the applied relay schema version.
func SchemaVersion(migrator pgpersist.Migrator) (uint, bool, error) {
	return migrator.Version(MigrationsTable, Migrations, MigrationsDir)
}
