package mongo

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
)

type Config struct {
	ConnectionString string `mapstructure:"connection-string"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	ReplicaSet       string `mapstructure:"replica-set"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	DirectConnection bool   `mapstructure:"direct-connection"`

	MaxPoolSize         uint64        `mapstructure:"max-pool-size"`
	MinPoolSize         uint64        `mapstructure:"min-pool-size"`
	MaxConnIdleTime     time.Duration `mapstructure:"max-conn-idle-time"`
	ConnectTimeout      time.Duration `mapstructure:"connect-timeout"`
	ServerSelectTimeout time.Duration `mapstructure:"server-select-timeout"`

	// TxMaxRetries bounds retries of transactions aborted with TransientTransactionError.
	TxMaxRetries int `mapstructure:"tx-max-retries"`
}

func (c Config) Validate() error {
	if c.ConnectionString != "" {
		if c.Database == "" {
			return fmt.Errorf("mongo: database is required")
		}
		return nil
	}
	if c.Host == "" || c.Port == 0 || c.Database == "" {
		return fmt.Errorf("mongo: host, port and database are required when connection-string is empty")
	}
	return nil
}

// NewConfig reads the "mongo" section of v.
func NewConfig(v *viper.Viper) (Config, error) {
	return newConfig(v)
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := config.Section(v, "mongo")
	sub.SetDefault("connection-string", "")
	sub.SetDefault("host", "")
	sub.SetDefault("port", 27017)
	sub.SetDefault("replica-set", "")
	sub.SetDefault("username", "")
	sub.SetDefault("password", "")
	sub.SetDefault("database", "")
	sub.SetDefault("direct-connection", false)
	sub.SetDefault("max-pool-size", 100)
	sub.SetDefault("min-pool-size", 5)
	sub.SetDefault("max-conn-idle-time", 5*time.Minute)
	sub.SetDefault("connect-timeout", 10*time.Second)
	sub.SetDefault("server-select-timeout", 30*time.Second)
	sub.SetDefault("tx-max-retries", 3)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load mongo config: %w", err)
	}
	return cfg, nil
}
