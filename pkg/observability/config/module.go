package config

import (
	"errors"
	"fmt"

	coreconfig "github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	errMetricsEndpoint = errors.New("observability: otel-collector-endpoint is required when metrics are enabled")
	errSampleRatio     = errors.New("observability: tracing.sample-ratio must be within [0, 1]")
)

type configOptions struct {
	config         *Config
	disableTracing bool
	disableMetrics bool
}

type Option func(*configOptions)

// WithConfig provides a static Config (useful for tests).
func WithConfig(cfg Config) Option {
	return func(opts *configOptions) {
		opts.config = &cfg
	}
}

func WithDisableTracing() Option {
	return func(opts *configOptions) {
		opts.disableTracing = true
	}
}

func WithDisableMetrics() Option {
	return func(opts *configOptions) {
		opts.disableMetrics = true
	}
}

// NewObservabilityConfigModule provides observability configuration.
// By default, configuration is loaded from viper.
func NewObservabilityConfigModule(opts ...Option) fx.Option {
	cfg := &configOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(provideConfig),
	)
}

func provideConfig(opts *configOptions, v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if opts.config != nil {
		cfg = *opts.config
	} else {
		loaded, err := newConfig(v)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	applyDefaults(&cfg)
	applyDisableOptions(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.Info("loaded observability config",
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	return cfg, nil
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := coreconfig.Section(v, "observability")
	sub.SetDefault("otel-collector-endpoint", "")
	sub.SetDefault("tracing.enabled", false)
	sub.SetDefault("tracing.sample-ratio", DefaultSampleRatio)
	sub.SetDefault("metrics.enabled", false)
	sub.SetDefault("metrics.interval", DefaultMetricsInterval)
	sub.SetDefault("metrics.runtime", true)

	var cfg Config
	if err := sub.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load observability config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Interval == 0 {
		cfg.Metrics.Interval = DefaultMetricsInterval
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultSampleRatio
	}
}

func applyDisableOptions(cfg *Config, opts *configOptions) {
	if opts.disableTracing {
		cfg.Tracing.Enabled = false
	}
	if opts.disableMetrics {
		cfg.Metrics.Enabled = false
	}
}
