package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newDeadCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "Inspect and replay dead-lettered records",
	}
	cmd.AddCommand(newDeadListCmd(o), newDeadReplayCmd(o))
	return cmd
}

func newDeadListCmd(o *rootOptions) *cobra.Command {
	var (
		table string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead records, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStorage(cmd.Context(), func(ctx context.Context, s storage) error {
				admin, err := s.admin(table)
				if err != nil {
					return err
				}
				records, err := admin.ListDead(ctx, limit)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tATTEMPTS\tCREATED\tLAST ERROR")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
						r.ID, r.Type, r.Attempts, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), lo.Ellipsis(r.LastError, 80))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", tableOutbox, "Table to inspect: outbox or commands")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of records")

	return cmd
}

func newDeadReplayCmd(o *rootOptions) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "replay ID [ID...]",
		Short: "Append a fresh pending copy of each dead record",
		Long: `Append a fresh pending copy of each dead record.

The dead record is kept unchanged; the copy gets a new id and the header
relay-replay-of with the original id.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid record id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}

			return o.withStorage(cmd.Context(), func(ctx context.Context, s storage) error {
				admin, err := s.admin(table)
				if err != nil {
					return err
				}
				for _, id := range ids {
					replayed, err := admin.Replay(ctx, id)
					if err != nil {
						return fmt.Errorf("replay %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", id, replayed.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", tableOutbox, "Table of the records: outbox or commands")

	return cmd
}
