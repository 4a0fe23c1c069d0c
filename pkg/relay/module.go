package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/worker"
	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// OutboxRelay delivers the outbox table to the external sink.
type OutboxRelay struct {
	*Relay
}

// CommandRelay executes the internal-command table in-process.
type CommandRelay struct {
	*Relay
}

// OutboxWriter appends integration events to the outbox table.
type OutboxWriter struct {
	*Writer
}

// CommandWriter enqueues internal commands. Message.AvailableAt is the
// time the command is scheduled for.
type CommandWriter struct {
	*Writer
}

// Admins holds the dead-letter tooling of both tables.
type Admins struct {
	Outbox   *Admin
	Commands *Admin
}

// CommandRoute binds a handler to a command type inside the fx graph.
type CommandRoute struct {
	Type    string
	Handler CommandHandler
}

// AsCommandRoute annotates a constructor returning CommandRoute so the
// relay module registers it:
//
//	fx.Provide(relay.AsCommandRoute(newSendConfirmationEmailRoute))
func AsCommandRoute(ctor any) any {
	return fx.Annotate(ctor, fx.ResultTags(`group:"relay_commands"`))
}

type moduleOptions struct {
	config *Config
}

// ModuleOption configures NewRelayModule.
type ModuleOption func(*moduleOptions)

// WithRelayConfig supplies a static Config instead of reading viper.
func WithRelayConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewRelayModule wires writers, relays and admins on top of the relay.Stores
// provided by a storage module. The outbox relay needs a relay.Sink when the
// outbox table is enabled.
func NewRelayModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Module("relay",
		configProvider,
		fx.Provide(
			newPolicy,
			newRegistry,
			newTableOptions,
			provideOutboxWriter,
			provideCommandWriter,
			provideOutboxRelay,
			provideCommandRelay,
			provideAdmins,
		),
		fx.Provide(
			worker.Register[*OutboxRelay]("outbox-relay", worker.WithReady(), worker.WithShutdown()),
			worker.Register[*CommandRelay]("command-relay", worker.WithReady(), worker.WithShutdown()),
		),
	)
}

func newPolicy(cfg Config) (*BackoffPolicy, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewBackoffPolicy(cfg.Backoff, seed)
}

type registryParams struct {
	fx.In

	Routes     []CommandRoute    `group:"relay_commands"`
	Middleware CommandMiddleware `optional:"true"`
}

func newRegistry(p registryParams) (*CommandRegistry, error) {
	registry := NewCommandRegistry()
	for _, route := range p.Routes {
		handler := route.Handler
		if p.Middleware != nil && handler != nil {
			handler = p.Middleware(route.Type, handler)
		}
		if err := registry.Register(route.Type, handler); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// tableOptions builds the options shared by every component of one table.
type tableOptions func(table string) []Option

type telemetryParams struct {
	fx.In

	Log            *zap.Logger
	TracerProvider trace.TracerProvider `optional:"true"`
	MeterProvider  metric.MeterProvider `optional:"true"`
}

func newTableOptions(p telemetryParams) tableOptions {
	log := p.Log.With(zap.String("component", "relay"))
	return func(table string) []Option {
		opts := []Option{WithLogger(log), WithTable(table)}
		if p.TracerProvider != nil {
			opts = append(opts, WithTracerProvider(p.TracerProvider))
		}
		if p.MeterProvider != nil {
			opts = append(opts, WithMeterProvider(p.MeterProvider))
		}
		return opts
	}
}

func provideOutboxWriter(cfg Config, stores Stores, opts tableOptions) OutboxWriter {
	return OutboxWriter{NewWriter(stores.Outbox, opts(cfg.Outbox.Table)...)}
}

func provideCommandWriter(cfg Config, stores Stores, opts tableOptions) CommandWriter {
	return CommandWriter{NewWriter(stores.Commands, opts(cfg.Commands.Table)...)}
}

type outboxRelayParams struct {
	fx.In

	Config  Config
	Stores  Stores
	Policy  *BackoffPolicy
	Sink    Sink `optional:"true"`
	Options tableOptions
	Log     *zap.Logger
}

func provideOutboxRelay(p outboxRelayParams) (*OutboxRelay, error) {
	if !p.Config.Outbox.Enabled {
		p.Log.Info("outbox relay disabled")
		return &OutboxRelay{}, nil
	}
	if p.Sink == nil {
		return nil, fmt.Errorf("%w: outbox relay is enabled but no sink module is installed", ErrInvalidArgument)
	}
	r, err := NewRelay(p.Stores.Outbox, p.Sink, p.Policy, p.Config, p.Options(p.Config.Outbox.Table)...)
	if err != nil {
		return nil, err
	}
	return &OutboxRelay{r}, nil
}

func provideCommandRelay(cfg Config, stores Stores, policy *BackoffPolicy, registry *CommandRegistry, opts tableOptions, log *zap.Logger) (*CommandRelay, error) {
	if !cfg.Commands.Enabled {
		log.Info("command relay disabled")
		return &CommandRelay{}, nil
	}
	log.Info("command handlers registered", zap.Strings("types", registry.Types()))
	r, err := NewRelay(stores.Commands, NewCommandSink(registry), policy, cfg, opts(cfg.Commands.Table)...)
	if err != nil {
		return nil, err
	}
	return &CommandRelay{r}, nil
}

func provideAdmins(cfg Config, stores Stores, tx persistence.TxManager, opts tableOptions) Admins {
	return Admins{
		Outbox:   NewAdmin(stores.Outbox, tx, cfg.DBTimeout, opts(cfg.Outbox.Table)...),
		Commands: NewAdmin(stores.Commands, tx, cfg.DBTimeout, opts(cfg.Commands.Table)...),
	}
}

// Run blocks until ctx is done when the outbox table is disabled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	return runOrIdle(ctx, r.Relay)
}

// Run blocks until ctx is done when the command table is disabled.
func (r *CommandRelay) Run(ctx context.Context) error {
	return runOrIdle(ctx, r.Relay)
}

func runOrIdle(ctx context.Context, r *Relay) error {
	if r == nil {
		<-ctx.Done()
		return nil
	}
	return r.Run(ctx)
}
