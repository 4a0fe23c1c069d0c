package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Outbox sinks.
const (
	SinkKafka    = "kafka"
	SinkRabbitMQ = "rabbitmq"
	SinkLog      = "log"
)

// Default table names. Mongo uses the part after the schema as collection name.
const (
	DefaultOutboxTable   = "app.outbox_messages"
	DefaultCommandsTable = "app.internal_commands"
)

type Config struct {
	// Storage selects the backend: postgres, mongo or memory.
	Storage string `mapstructure:"storage"`
	// Sink selects where outbox records go: kafka, rabbitmq or log.
	Sink string `mapstructure:"sink"`
	// Idempotency guards command handlers with Redis markers.
	Idempotency bool `mapstructure:"idempotency"`
	// WorkerID identifies this process in lease_owner. Empty means hostname-pid-random.
	WorkerID string `mapstructure:"worker-id"`

	BatchSize     int           `mapstructure:"batch-size"`
	Concurrency   int           `mapstructure:"concurrency"`
	LeaseDuration time.Duration `mapstructure:"lease-duration"`
	PollInterval  time.Duration `mapstructure:"poll-interval"`
	// ErrorBackoff is the pause after a failed acquire before polling again.
	ErrorBackoff    time.Duration `mapstructure:"error-backoff"`
	MaxAttempts     int           `mapstructure:"max-attempts"`
	DeliveryTimeout time.Duration `mapstructure:"delivery-timeout"`
	DBTimeout       time.Duration `mapstructure:"db-timeout"`

	Backoff BackoffConfig `mapstructure:"backoff"`
	// Seed feeds the jitter source. Zero seeds from the clock.
	Seed uint64 `mapstructure:"seed"`

	Outbox   TableConfig `mapstructure:"outbox"`
	Commands TableConfig `mapstructure:"commands"`
}

type TableConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Table   string `mapstructure:"table"`
}

// DefaultConfig returns the settings used when the relay section is empty.
func DefaultConfig() Config {
	return Config{
		Storage:         StoragePostgres,
		Sink:            SinkLog,
		BatchSize:       50,
		Concurrency:     8,
		LeaseDuration:   time.Minute,
		PollInterval:    time.Second,
		ErrorBackoff:    5 * time.Second,
		MaxAttempts:     10,
		DeliveryTimeout: 15 * time.Second,
		DBTimeout:       5 * time.Second,
		Backoff: BackoffConfig{
			Initial:    time.Second,
			Max:        time.Hour,
			Multiplier: 2,
			Jitter:     0.2,
		},
		Outbox:   TableConfig{Enabled: true, Table: DefaultOutboxTable},
		Commands: TableConfig{Enabled: true, Table: DefaultCommandsTable},
	}
}

func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch c.Storage {
	case StoragePostgres, StorageMongo, StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage must be postgres, mongo or memory, got %q", c.Storage))
	}
	switch c.Sink {
	case SinkKafka, SinkRabbitMQ, SinkLog:
	default:
		problems = append(problems, fmt.Sprintf("sink must be kafka, rabbitmq or log, got %q", c.Sink))
	}
	check(c.BatchSize > 0, "batch-size must be positive")
	check(c.Concurrency > 0, "concurrency must be positive")
	check(c.MaxAttempts > 0, "max-attempts must be positive")
	check(c.PollInterval > 0, "poll-interval must be positive")
	check(c.ErrorBackoff > 0, "error-backoff must be positive")
	check(c.DBTimeout > 0, "db-timeout must be positive")
	check(c.DeliveryTimeout > 0, "delivery-timeout must be positive")
	// Leases are not renewed, so a lease must outlive the longest delivery
	// plus the write that records its outcome.
	check(c.LeaseDuration > c.DeliveryTimeout+c.DBTimeout,
		"lease-duration (%s) must exceed delivery-timeout + db-timeout (%s)", c.LeaseDuration, c.DeliveryTimeout+c.DBTimeout)
	check(!c.Outbox.Enabled || c.Outbox.Table != "", "outbox.table is required")
	check(!c.Commands.Enabled || c.Commands.Table != "", "commands.table is required")

	if err := c.Backoff.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: relay config: %s", ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

// NewConfig reads and validates the "relay" section of v.
func NewConfig(v *viper.Viper) (Config, error) {
	return newConfig(v)
}

func newConfig(v *viper.Viper) (Config, error) {
	d := DefaultConfig()
	sub := config.Section(v, "relay")
	sub.SetDefault("storage", d.Storage)
	sub.SetDefault("sink", d.Sink)
	sub.SetDefault("idempotency", false)
	sub.SetDefault("worker-id", "")
	sub.SetDefault("batch-size", d.BatchSize)
	sub.SetDefault("concurrency", d.Concurrency)
	sub.SetDefault("lease-duration", d.LeaseDuration)
	sub.SetDefault("poll-interval", d.PollInterval)
	sub.SetDefault("error-backoff", d.ErrorBackoff)
	sub.SetDefault("max-attempts", d.MaxAttempts)
	sub.SetDefault("delivery-timeout", d.DeliveryTimeout)
	sub.SetDefault("db-timeout", d.DBTimeout)
	sub.SetDefault("backoff.initial", d.Backoff.Initial)
	sub.SetDefault("backoff.max", d.Backoff.Max)
	sub.SetDefault("backoff.multiplier", d.Backoff.Multiplier)
	sub.SetDefault("backoff.jitter", d.Backoff.Jitter)
	sub.SetDefault("seed", 0)
	sub.SetDefault("outbox.enabled", d.Outbox.Enabled)
	sub.SetDefault("outbox.table", d.Outbox.Table)
	sub.SetDefault("commands.enabled", d.Commands.Enabled)
	sub.SetDefault("commands.table", d.Commands.Table)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load relay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
