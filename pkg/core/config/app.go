package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
	envConfigName        = "CONFIG_NAME"
)

const (
	defaultConfigDir      = "./configs"
	defaultServiceName    = "ecommerce-relay"
	defaultServiceVersion = "dev"

	// EnvProduction is the APP_ENV value of production deployments.
	// Destructive maintenance commands refuse to run there.
	EnvProduction = "pro"
)

// AppConfig represents the core application metadata and configuration paths.
type AppConfig struct {
	// ConfigFile is the full path to the config file
	ConfigFile string
	// ServiceName is reported as the otel service name and in startup logs
	ServiceName string
	// ServiceVersion is the version of the service
	ServiceVersion string
	// Environment is the deployment environment (e.g., "local", "staging", "pro")
	Environment string
}

// IsProduction reports whether the process runs in the production environment.
func (c AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

type appConfigOptions struct {
	static *AppConfig
}

// AppConfigOption configures NewAppConfigModule.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig supplies a static AppConfig instead of reading the environment.
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(o *appConfigOptions) {
		o.static = &cfg
	}
}

// NewAppConfigModule provides AppConfig loaded from environment variables.
//
// Required environment variables:
//   - APP_ENV: Environment name (e.g., "local", "staging", "pro")
//
// Optional environment variables:
//   - APP_SERVICE_NAME: Service name (default: ecommerce-relay)
//   - APP_SERVICE_VERSION: Service version (default: dev)
//   - CONFIG_FILE: Full path to config file (default: ./configs/config.{env}.yaml)
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	provide := fx.Provide(newAppConfig)
	if o.static != nil {
		provide = fx.Supply(*o.static)
	}

	return fx.Module("appconfig",
		provide,
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Info("Loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
				zap.String("configFile", conf.ConfigFile),
				zap.Bool("configFileProvided", os.Getenv(envConfigFile) != ""),
			)
		}),
	)
}

// LoadAppConfig reads AppConfig from the environment without starting an fx app.
// CLI commands use it to guard destructive operations.
func LoadAppConfig() (AppConfig, error) {
	return newAppConfig()
}

func newAppConfig() (AppConfig, error) {
	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		serviceVersion = defaultServiceVersion
	}

	configFile := os.Getenv(envConfigFile)
	if configFile == "" {
		configDir := os.Getenv(envConfigDir)
		if configDir == "" {
			configDir = defaultConfigDir
		}

		configName := os.Getenv(envConfigName)
		if configName == "" {
			configName = "config." + env
		}

		configFile = filepath.Join(configDir, configName+".yaml")
	}

	return AppConfig{
		ConfigFile:     configFile,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
	}, nil
}
