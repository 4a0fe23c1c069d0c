package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errNacked = errors.New("message nacked by broker")

// Client owns one connection and one confirm-mode channel, reopening
// both on the next publish after the broker closes them.
type Client struct {
	conf Config
	log  *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewClient(conf Config, log *zap.Logger) *Client {
	return &Client{conf: conf, log: log}
}

// Connect opens the connection with exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	open := func() error {
		_, err := c.channel()
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn("failed to connect to rabbitmq, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.conf.ConnectRetries), ctx)
	if err := backoff.RetryNotify(open, b, notify); err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	c.log.Info("connected to rabbitmq", zap.String("exchange", c.conf.Exchange))
	return nil
}

func (c *Client) channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.DialConfig(c.conf.URL, amqp.Config{
			Heartbeat:  c.conf.Heartbeat,
			Properties: amqp.Table{"connection_name": c.conf.ConnectionName},
		})
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	if c.conf.DeclareExchange {
		if err := ch.ExchangeDeclare(c.conf.Exchange, c.conf.ExchangeType, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare exchange %q: %w", c.conf.Exchange, err)
		}
	}

	c.ch = ch
	return ch, nil
}

// Publish sends msg and blocks until the broker confirms it or ctx ends.
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %q: %w", exchange, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return errNacked
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.ch != nil && !c.ch.IsClosed() {
		errs = append(errs, c.ch.Close())
	}
	if c.conn != nil && !c.conn.IsClosed() {
		errs = append(errs, c.conn.Close())
	}
	c.ch, c.conn = nil, nil
	return errors.Join(errs...)
}
