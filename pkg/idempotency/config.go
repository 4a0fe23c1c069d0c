package idempotency

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	KeyPrefix string `mapstructure:"key-prefix"`
	// ProcessingTTL bounds how long a crashed handler blocks the command.
	ProcessingTTL time.Duration `mapstructure:"processing-ttl"`
	// DoneTTL is how long a handled command id is remembered.
	DoneTTL time.Duration `mapstructure:"done-ttl"`
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.ProcessingTTL <= 0 || c.DoneTTL <= 0 {
		return fmt.Errorf("redis: processing-ttl and done-ttl must be positive")
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := config.Section(v, "redis")
	sub.SetDefault("addr", "")
	sub.SetDefault("username", "")
	sub.SetDefault("password", "")
	sub.SetDefault("db", 0)
	sub.SetDefault("key-prefix", "relay:cmd:")
	sub.SetDefault("processing-ttl", 5*time.Minute)
	sub.SetDefault("done-ttl", 7*24*time.Hour)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load redis config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
