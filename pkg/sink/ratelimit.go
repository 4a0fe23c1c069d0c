package sink

import (
	"context"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig caps deliveries per second across all relay goroutines.
type RateLimitConfig struct {
	// PerSecond of zero disables the limit.
	PerSecond float64 `mapstructure:"per-second"`
	Burst     int     `mapstructure:"burst"`
}

type rateLimitedSink struct {
	next    relay.Sink
	limiter *rate.Limiter
}

// WithRateLimit delays deliveries to stay under cfg.PerSecond. A delivery
// whose context ends while waiting is reported as relay.ErrSinkUnavailable.
func WithRateLimit(next relay.Sink, cfg RateLimitConfig) relay.Sink {
	if cfg.PerSecond <= 0 {
		return next
	}
	burst := max(cfg.Burst, 1)
	return &rateLimitedSink{next: next, limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), burst)}
}

// Decorate wraps a broker sink with its circuit breaker and, outside of it,
// the rate limiter, so waiting for a token never trips the breaker.
func Decorate(next relay.Sink, name string, breaker BreakerConfig, limit RateLimitConfig, log *zap.Logger) relay.Sink {
	return WithRateLimit(WithCircuitBreaker(next, name, breaker, log), limit)
}

func (s *rateLimitedSink) Deliver(ctx context.Context, rec *relay.Record) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %w", relay.ErrSinkUnavailable, err)
	}
	return s.next.Deliver(ctx, rec)
}
