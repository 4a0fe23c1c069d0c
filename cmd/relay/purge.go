package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/cobra"
)

func newPurgeCmd(o *rootOptions) *cobra.Command {
	var (
		table string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every record of a relay table (test environments only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("purge deletes all records; pass --yes to confirm")
			}
			appCfg, err := config.LoadAppConfig()
			if err != nil {
				return err
			}
			if appCfg.IsProduction() {
				return fmt.Errorf("purge is disabled in the %q environment", appCfg.Environment)
			}
			tables := []string{table}
			if table == tableAll {
				tables = []string{tableOutbox, tableCommands}
			}

			return o.withStorage(cmd.Context(), func(ctx context.Context, s storage) error {
				for _, t := range tables {
					admin, err := s.admin(t)
					if err != nil {
						return err
					}
					if err := admin.Purge(ctx); err != nil {
						return fmt.Errorf("purge %s: %w", t, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", t)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", tableAll, "Table to purge: outbox, commands or all")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
