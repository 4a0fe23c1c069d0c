// Package main is the relay CLI. It runs the outbox relay and offers
// schema and dead-letter tooling.
//
// Usage:
//
//	relay serve
//	relay migrate up
//	relay dead list --table outbox --limit 20
//	relay dead replay --table commands 7d5f0c1e-...
//	relay purge --table all --yes
package main

import (
	"fmt"
	"os"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	noEnvFile  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Transactional outbox and internal command relay",
		Long:          `relay delivers records written to the outbox table to a message broker and manages dead-lettered records.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if !opts.noEnvFile {
				config.LoadDotEnv(".env", ".env.local")
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (default: $CONFIG_FILE or ./configs/config.$APP_ENV.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noEnvFile, "no-env-file", false, "Do not load .env files")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newDeadCmd(opts),
		newPurgeCmd(opts),
	)

	return rootCmd
}
