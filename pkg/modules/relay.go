package modules

import (
	"github.com/Sokol111/ecommerce-relay/pkg/idempotency"
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/fx"
)

// NewRelayModule assembles storage, sink, relay and, when enabled, the
// command idempotency guard for cfg. Command handlers are added by the
// caller with relay.AsCommandRoute.
func NewRelayModule(cfg relay.Config) (fx.Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	persistence, err := NewPersistenceModule(cfg.Storage)
	if err != nil {
		return nil, err
	}

	opts := []fx.Option{
		persistence,
		relay.NewRelayModule(relay.WithRelayConfig(cfg)),
	}

	if cfg.Outbox.Enabled {
		messaging, err := NewMessagingModule(cfg.Sink)
		if err != nil {
			return nil, err
		}
		opts = append(opts, messaging)
	}
	if cfg.Idempotency && cfg.Commands.Enabled {
		opts = append(opts, idempotency.NewIdempotencyModule())
	}

	return fx.Options(opts...), nil
}
