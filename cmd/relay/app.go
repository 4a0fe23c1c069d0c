package main

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/core"
	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/modules"
	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tableOutbox   = "outbox"
	tableCommands = "commands"
	tableAll      = "all"
)

func (o *rootOptions) loadRelayConfig() (relay.Config, error) {
	v, err := config.NewViper(config.ResolveConfigFile(o.configFile))
	if err != nil {
		return relay.Config{}, err
	}
	return relay.NewConfig(v)
}

func (o *rootOptions) coreModule() fx.Option {
	// .env files were loaded by the root command.
	opts := []core.Option{core.WithoutEnvFile()}
	if o.configFile != "" {
		opts = append(opts, core.WithConfigFile(o.configFile))
	}
	return core.NewCoreModule(opts...)
}

// runApp starts an fx app built from opts, calls fn and stops the app.
func runApp(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	app := fx.New(append(opts, fx.NopLogger)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// storageDeps is what the dead-letter commands need from the storage backend.
type storageDeps struct {
	Stores relay.Stores
	Tx     persistence.TxManager
	Log    *zap.Logger
}

type storage struct {
	cfg  relay.Config
	deps storageDeps
}

func (s storage) admin(table string) (*relay.Admin, error) {
	var (
		store relay.Store
		name  string
	)
	switch table {
	case tableOutbox:
		store, name = s.deps.Stores.Outbox, s.cfg.Outbox.Table
	case tableCommands:
		store, name = s.deps.Stores.Commands, s.cfg.Commands.Table
	default:
		return nil, fmt.Errorf("unknown table %q, expected %s or %s", table, tableOutbox, tableCommands)
	}

	return relay.NewAdmin(store, s.deps.Tx, s.cfg.DBTimeout,
		relay.WithLogger(s.deps.Log.With(zap.String("component", "relay-cli"))),
		relay.WithTable(name),
	), nil
}

// withStorage connects to the configured backend and calls fn.
func (o *rootOptions) withStorage(ctx context.Context, fn func(context.Context, storage) error) error {
	cfg, err := o.loadRelayConfig()
	if err != nil {
		return err
	}
	persistenceModule, err := modules.NewPersistenceModule(cfg.Storage)
	if err != nil {
		return err
	}

	var deps storageDeps
	return runApp(ctx,
		func(ctx context.Context) error {
			return fn(ctx, storage{cfg: cfg, deps: deps})
		},
		o.coreModule(),
		persistenceModule,
		fx.Supply(cfg),
		fx.Populate(&deps.Stores, &deps.Tx, &deps.Log),
	)
}
