package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option configures NewZapLoggingModule.
type Option func(*moduleOptions)

// WithLoggerConfig supplies a static Config instead of reading viper.
func WithLoggerConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewZapLoggingModule provides *zap.Logger and routes fx events through it.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		configProvider = fx.Supply(*o.config)
	}

	return fx.Options(
		configProvider,
		fx.Provide(provideLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config, app config.AppConfig) (*zap.Logger, error) {
	logger, _, err := newLogger(conf, app)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ignoreSyncError(logger.Sync())
		},
	})

	return logger, nil
}

// Sync on a terminal stderr fails with EINVAL or ENOTTY; neither is actionable.
func ignoreSyncError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
