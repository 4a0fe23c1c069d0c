// Package rabbitmq publishes relay records to a RabbitMQ exchange.
package rabbitmq

import (
	"context"
	"errors"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// Sink publishes persistent messages with MessageId set to the record id.
type Sink struct {
	pub  publisher
	conf Config
}

func NewSink(pub *Client, conf Config) *Sink {
	return &Sink{pub: pub, conf: conf}
}

func (s *Sink) Deliver(ctx context.Context, rec *relay.Record) error {
	key := s.conf.RoutingKey
	if key == "" {
		key = rec.Type
	}

	headers := amqp.Table{}
	for k, v := range sink.MessageHeaders(ctx, rec) {
		headers[k] = v
	}

	msg := amqp.Publishing{
		MessageId:    rec.ID.String(),
		Type:         rec.Type,
		ContentType:  s.conf.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.CreatedAt,
		Headers:      headers,
		Body:         rec.Payload,
	}

	return classify(s.pub.Publish(ctx, s.conf.Exchange, key, msg))
}

func classify(err error) error {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) && amqpErr.Code == amqp.ContentTooLarge {
		return relay.Permanent(err)
	}
	return err
}
