package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type mockPublisher struct {
	err   error
	calls []published
}

func (m *mockPublisher) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	m.calls = append(m.calls, published{exchange: exchange, key: key, msg: msg})
	return m.err
}
