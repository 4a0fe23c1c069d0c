package config

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotenvConfig struct {
	paths  []string
	loaded []string
}

// DotEnvOption is a functional option for configuring the dotenv module.
type DotEnvOption func(*dotenvConfig)

// WithDotEnvPath replaces the default .env lookup list.
func WithDotEnvPath(paths ...string) DotEnvOption {
	return func(cfg *dotenvConfig) {
		cfg.paths = paths
	}
}

// NewDotEnvModule loads environment variables from .env files before any
// other module reads the environment. Missing files are skipped; variables
// already set in the process environment win.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	cfg := &dotenvConfig{paths: []string{".env", ".env.local"}}
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.loaded = LoadDotEnv(cfg.paths...)

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if len(cfg.loaded) > 0 {
						logger.Info("Loaded .env files", zap.Strings("paths", cfg.loaded))
					} else {
						logger.Debug("No .env file loaded", zap.Strings("paths", cfg.paths))
					}
					return nil
				},
			})
		}),
	)
}

// LoadDotEnv loads every existing file of paths and returns the ones it read.
func LoadDotEnv(paths ...string) []string {
	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}
