package rabbitmq

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"github.com/spf13/viper"
)

type Config struct {
	URL            string `mapstructure:"url"`
	ConnectionName string `mapstructure:"connection-name"`

	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange-type"`
	// DeclareExchange declares a durable exchange on connect.
	DeclareExchange bool `mapstructure:"declare-exchange"`
	// RoutingKey is used for every record. Empty means the record type.
	RoutingKey  string `mapstructure:"routing-key"`
	ContentType string `mapstructure:"content-type"`

	Heartbeat      time.Duration `mapstructure:"heartbeat"`
	ConnectRetries uint64        `mapstructure:"connect-retries"`

	CircuitBreaker sink.BreakerConfig   `mapstructure:"circuit-breaker"`
	RateLimit      sink.RateLimitConfig `mapstructure:"rate-limit"`
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("rabbitmq.url is required")
	}
	if c.DeclareExchange && c.Exchange == "" {
		return fmt.Errorf("rabbitmq: the default exchange cannot be declared")
	}
	if c.Exchange == "" && c.RoutingKey == "" {
		return fmt.Errorf("rabbitmq: routing-key is required when publishing to the default exchange")
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	cb := sink.DefaultBreakerConfig()
	sub := config.Section(v, "rabbitmq")
	sub.SetDefault("url", "")
	sub.SetDefault("connection-name", "ecommerce-relay")
	sub.SetDefault("exchange", "")
	sub.SetDefault("exchange-type", "topic")
	sub.SetDefault("declare-exchange", false)
	sub.SetDefault("routing-key", "")
	sub.SetDefault("content-type", "application/json")
	sub.SetDefault("heartbeat", 10*time.Second)
	sub.SetDefault("connect-retries", 10)
	sub.SetDefault("circuit-breaker.enabled", cb.Enabled)
	sub.SetDefault("circuit-breaker.max-requests", cb.MaxRequests)
	sub.SetDefault("circuit-breaker.interval", cb.Interval)
	sub.SetDefault("circuit-breaker.timeout", cb.Timeout)
	sub.SetDefault("circuit-breaker.failure-threshold", cb.FailureThreshold)
	sub.SetDefault("rate-limit.per-second", 0)
	sub.SetDefault("rate-limit.burst", 0)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load rabbitmq config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
