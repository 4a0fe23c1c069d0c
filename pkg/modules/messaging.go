package modules

import (
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"github.com/Sokol111/ecommerce-relay/pkg/sink/kafka"
	"github.com/Sokol111/ecommerce-relay/pkg/sink/rabbitmq"
	"go.uber.org/fx"
)

// NewMessagingModule provides the relay.Sink the outbox relay delivers to.
func NewMessagingModule(sinkName string) (fx.Option, error) {
	switch sinkName {
	case relay.SinkKafka:
		return kafka.NewKafkaSinkModule(), nil
	case relay.SinkRabbitMQ:
		return rabbitmq.NewRabbitMQSinkModule(), nil
	case relay.SinkLog:
		return sink.NewLogSinkModule(), nil
	default:
		return nil, fmt.Errorf("%w: unknown sink %q", relay.ErrInvalidArgument, sinkName)
	}
}
