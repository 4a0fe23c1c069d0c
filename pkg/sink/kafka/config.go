package kafka

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Brokers  string `mapstructure:"brokers"`
	ClientID string `mapstructure:"client-id"`
	// Acks is passed to librdkafka as "acks".
	Acks              string `mapstructure:"acks"`
	EnableIdempotence bool   `mapstructure:"enable-idempotence"`

	// DefaultTopic receives records whose type has no route. Empty means
	// unrouted records are dead-lettered.
	DefaultTopic string  `mapstructure:"default-topic"`
	Routes       []Route `mapstructure:"routes"`

	ReadinessTimeout  time.Duration `mapstructure:"readiness-timeout"` // 0 = no timeout
	FailOnBrokerError bool          `mapstructure:"fail-on-broker-error"`
	FlushTimeout      time.Duration `mapstructure:"flush-timeout"`

	CircuitBreaker sink.BreakerConfig   `mapstructure:"circuit-breaker"`
	RateLimit      sink.RateLimitConfig `mapstructure:"rate-limit"`
}

// Route sends records of Type to Topic.
type Route struct {
	Type  string `mapstructure:"type"`
	Topic string `mapstructure:"topic"`
}

func (c Config) Validate() error {
	if c.Brokers == "" {
		return fmt.Errorf("kafka.brokers is required")
	}
	seen := make(map[string]struct{}, len(c.Routes))
	for _, r := range c.Routes {
		if r.Type == "" || r.Topic == "" {
			return fmt.Errorf("kafka.routes: type and topic are required")
		}
		if _, dup := seen[r.Type]; dup {
			return fmt.Errorf("kafka.routes: duplicate route for type %q", r.Type)
		}
		seen[r.Type] = struct{}{}
	}
	if c.DefaultTopic == "" && len(c.Routes) == 0 {
		return fmt.Errorf("kafka: default-topic or routes must be set")
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

func newConfig(v *viper.Viper, log *zap.Logger) (Config, error) {
	cb := sink.DefaultBreakerConfig()
	sub := config.Section(v, "kafka")
	sub.SetDefault("brokers", "")
	sub.SetDefault("client-id", "ecommerce-relay")
	sub.SetDefault("acks", "all")
	sub.SetDefault("enable-idempotence", true)
	sub.SetDefault("default-topic", "")
	sub.SetDefault("readiness-timeout", 60*time.Second)
	sub.SetDefault("fail-on-broker-error", true)
	sub.SetDefault("flush-timeout", 10*time.Second)
	sub.SetDefault("circuit-breaker.enabled", cb.Enabled)
	sub.SetDefault("circuit-breaker.max-requests", cb.MaxRequests)
	sub.SetDefault("circuit-breaker.interval", cb.Interval)
	sub.SetDefault("circuit-breaker.timeout", cb.Timeout)
	sub.SetDefault("circuit-breaker.failure-threshold", cb.FailureThreshold)
	sub.SetDefault("rate-limit.per-second", 0)
	sub.SetDefault("rate-limit.burst", 0)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load kafka config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	log.Info("loaded kafka config",
		zap.String("brokers", cfg.Brokers),
		zap.String("default_topic", cfg.DefaultTopic),
		zap.Int("routes", len(cfg.Routes)),
	)
	return cfg, nil
}
