package sink

import (
	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogSinkModule provides a LogSink as the outbox relay.Sink.
func NewLogSinkModule() fx.Option {
	return fx.Module("log-sink",
		fx.Provide(func(log *zap.Logger) relay.Sink {
			log.Warn("outbox records are written to the log, no broker is configured")
			return NewLogSink(log)
		}),
	)
}
