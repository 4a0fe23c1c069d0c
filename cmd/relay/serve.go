package main

import (
	"github.com/Sokol111/ecommerce-relay/pkg/modules"
	"github.com/Sokol111/ecommerce-relay/pkg/observability"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the outbox relay until interrupted",
		Long: `Run the outbox relay until SIGINT or SIGTERM.

The standalone binary has no command handlers, so the internal command
table is not relayed here. Services that own command handlers embed
modules.NewRelayModule and register them with relay.AsCommandRoute.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadRelayConfig()
			if err != nil {
				return err
			}
			cfg.Commands.Enabled = false

			relayModule, err := modules.NewRelayModule(cfg)
			if err != nil {
				return err
			}

			app := fx.New(
				o.coreModule(),
				observability.NewObservabilityModule(),
				relayModule,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
