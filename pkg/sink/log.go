package sink

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/zap"
)

// LogSink writes records to the log and always succeeds. Used when no
// broker is configured, e.g. in local environments.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.With(zap.String("component", "log-sink"))}
}

func (s *LogSink) Deliver(_ context.Context, rec *relay.Record) error {
	s.log.Info("record delivered to log",
		zap.Stringer("id", rec.ID),
		zap.String("type", rec.Type),
		zap.Int("attempts", rec.Attempts),
		zap.ByteString("payload", rec.Payload),
	)
	return nil
}
