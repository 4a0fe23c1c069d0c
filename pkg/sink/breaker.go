// Package sink holds decorators and simple relay.Sink implementations
// shared by the broker sinks.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the circuit breaker in front of a sink.
type BreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxRequests is the number of trial deliveries allowed while half-open.
	MaxRequests uint32 `mapstructure:"max-requests"`
	// Interval clears the failure counts while closed. Zero never clears them.
	Interval time.Duration `mapstructure:"interval"`
	// Timeout is how long the breaker stays open before going half-open.
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure-threshold"`
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

func (c BreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxRequests == 0 {
		return fmt.Errorf("circuit-breaker.max-requests must be positive")
	}
	if c.FailureThreshold == 0 {
		return fmt.Errorf("circuit-breaker.failure-threshold must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("circuit-breaker.timeout must be positive")
	}
	return nil
}

type breakerSink struct {
	next relay.Sink
	cb   *gobreaker.CircuitBreaker
}

// WithCircuitBreaker stops calling next after FailureThreshold consecutive
// failures. While open, Deliver returns relay.ErrSinkUnavailable so the
// relay releases leases without spending attempts. Permanent failures and
// errors that already mean relay.ErrSinkUnavailable (the broker was never
// reached) do not count against the breaker.
func WithCircuitBreaker(next relay.Sink, name string, cfg BreakerConfig, log *zap.Logger) relay.Sink {
	if !cfg.Enabled {
		return next
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || relay.IsPermanent(err) || errors.Is(err, relay.ErrSinkUnavailable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("sink circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &breakerSink{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (s *breakerSink) Deliver(ctx context.Context, rec *relay.Record) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Deliver(ctx, rec)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", relay.ErrSinkUnavailable, err)
	}
	return err
}
