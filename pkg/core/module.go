// Package core bundles the ambient modules every relay process needs:
// .env and viper configuration, the app identity, zap, readiness tracking
// and background workers.
package core

import (
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/core/logger"
	"github.com/Sokol111/ecommerce-relay/pkg/core/worker"
	"go.uber.org/fx"
)

const (
	// Broker metadata and database connects retry with backoff on start.
	startTimeout = 2 * time.Minute
	// In-flight deliveries get their delivery timeout to finish on stop.
	stopTimeout = time.Minute
)

type coreOptions struct {
	appConfig    *config.AppConfig
	loggerConfig *logger.Config
	viperOpts    []config.ViperOption
	skipDotEnv   bool
}

type Option func(*coreOptions)

// WithAppConfig skips reading APP_* variables.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(o *coreOptions) { o.appConfig = &cfg }
}

// WithLoggerConfig skips reading the logger section.
func WithLoggerConfig(cfg logger.Config) Option {
	return func(o *coreOptions) { o.loggerConfig = &cfg }
}

// WithoutEnvFile skips .env loading, e.g. when the CLI already loaded it.
func WithoutEnvFile() Option {
	return func(o *coreOptions) { o.skipDotEnv = true }
}

// WithoutConfigFile keeps viper on defaults and environment variables only.
func WithoutConfigFile() Option {
	return func(o *coreOptions) { o.viperOpts = append(o.viperOpts, config.WithoutConfigFile()) }
}

// WithConfigFile reads path instead of resolving CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(o *coreOptions) { o.viperOpts = append(o.viperOpts, config.WithConfigPath(path)) }
}

func NewCoreModule(opts ...Option) fx.Option {
	o := &coreOptions{}
	for _, opt := range opts {
		opt(o)
	}

	modules := []fx.Option{
		fx.StartTimeout(startTimeout),
		fx.StopTimeout(stopTimeout),
	}
	if !o.skipDotEnv {
		modules = append(modules, config.NewDotEnvModule())
	}

	var appOpts []config.AppConfigOption
	if o.appConfig != nil {
		appOpts = append(appOpts, config.WithAppConfig(*o.appConfig))
	}
	var logOpts []logger.Option
	if o.loggerConfig != nil {
		logOpts = append(logOpts, logger.WithLoggerConfig(*o.loggerConfig))
	}

	return fx.Options(append(modules,
		config.NewViperModule(o.viperOpts...),
		config.NewAppConfigModule(appOpts...),
		logger.NewZapLoggingModule(logOpts...),
		health.NewReadinessModule(),
		worker.InvokeWorkers(),
	)...)
}
