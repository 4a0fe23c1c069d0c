package main

import (
	"context"
	"fmt"

	mongopersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/mongo"
	pgpersist "github.com/Sokol111/ecommerce-relay/pkg/persistence/postgres"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	relaymongo "github.com/Sokol111/ecommerce-relay/pkg/relay/mongo"
	relaypg "github.com/Sokol111/ecommerce-relay/pkg/relay/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrateCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the relay schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply relay migrations (Postgres) or create indexes (MongoDB)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.migrateUp(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every relay migration (Postgres only)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withMigrator(cmd.Context(), func(m pgpersist.Migrator) error {
					return relaypg.Rollback(m)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied relay schema version (Postgres only)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withMigrator(cmd.Context(), func(m pgpersist.Migrator) error {
					v, dirty, err := relaypg.SchemaVersion(m)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)

	return cmd
}

func (o *rootOptions) migrateUp(ctx context.Context) error {
	cfg, err := o.loadRelayConfig()
	if err != nil {
		return err
	}

	switch cfg.Storage {
	case relay.StoragePostgres:
		return o.withMigrator(ctx, relaypg.Migrate)
	case relay.StorageMongo:
		// The store module creates indexes on start.
		return runApp(ctx,
			func(context.Context) error { return nil },
			o.coreModule(),
			mongopersist.NewMongoModule(),
			relaymongo.NewMongoStoreModule(),
			fx.Supply(cfg),
		)
	default:
		return fmt.Errorf("storage %q has no schema", cfg.Storage)
	}
}

func (o *rootOptions) withMigrator(ctx context.Context, fn func(pgpersist.Migrator) error) error {
	cfg, err := o.loadRelayConfig()
	if err != nil {
		return err
	}
	if cfg.Storage != relay.StoragePostgres {
		return fmt.Errorf("migrations apply to postgres storage only, configured storage is %q", cfg.Storage)
	}

	var migrator pgpersist.Migrator
	return runApp(ctx,
		func(context.Context) error { return fn(migrator) },
		o.coreModule(),
		pgpersist.NewPostgresModule(),
		fx.Populate(&migrator),
	)
}
