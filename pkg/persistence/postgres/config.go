package postgres

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
)

type Config struct {
	// DSN overrides the discrete connection fields when set.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl-mode"`

	MaxConns        int32         `mapstructure:"max-conns"`
	MinConns        int32         `mapstructure:"min-conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max-conn-idle-time"`
	MaxConnLifetime time.Duration `mapstructure:"max-conn-lifetime"`

	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
	// ConnectRetries is the number of extra ping attempts made on startup.
	ConnectRetries uint64 `mapstructure:"connect-retries"`

	// MigrateOnStart applies embedded schema migrations when the app starts.
	MigrateOnStart bool `mapstructure:"migrate-on-start"`
}

func (c Config) Validate() error {
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" || c.Port == 0 || c.Database == "" {
		return fmt.Errorf("postgres: host, port and database are required when dsn is empty")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("postgres: min-conns (%d) exceeds max-conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// ConnString returns the DSN, building a URL from the discrete fields when needed.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// NewConfig reads the "postgres" section of v.
func NewConfig(v *viper.Viper) (Config, error) {
	return newConfig(v)
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := config.Section(v, "postgres")
	sub.SetDefault("dsn", "")
	sub.SetDefault("host", "")
	sub.SetDefault("port", 5432)
	sub.SetDefault("user", "")
	sub.SetDefault("password", "")
	sub.SetDefault("database", "")
	sub.SetDefault("ssl-mode", "disable")
	sub.SetDefault("max-conns", 10)
	sub.SetDefault("min-conns", 1)
	sub.SetDefault("max-conn-idle-time", 5*time.Minute)
	sub.SetDefault("max-conn-lifetime", time.Hour)
	sub.SetDefault("connect-timeout", 5*time.Second)
	sub.SetDefault("connect-retries", 5)
	sub.SetDefault("migrate-on-start", true)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load postgres config: %w", err)
	}
	return cfg, nil
}
