package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type viperConfig struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption is a functional option for configuring the Viper module.
type ViperOption func(*viperConfig)

// WithConfigPath sets a direct path to the configuration file.
func WithConfigPath(path string) ViperOption {
	return func(cfg *viperConfig) {
		cfg.configPath = &path
	}
}

// WithoutConfigFile disables loading of any config file.
// Settings then come from environment variables only.
func WithoutConfigFile() ViperOption {
	return func(cfg *viperConfig) {
		cfg.noConfigFile = true
	}
}

// FilePath represents the path to a configuration file.
// Empty string means no config file will be loaded.
type FilePath string

// NewViperModule provides a *viper.Viper reading the resolved config file
// and environment overrides (relay.batch-size -> RELAY_BATCH_SIZE).
func NewViperModule(opts ...ViperOption) fx.Option {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("viper",
		fx.Supply(resolveConfigPath(cfg)),
		fx.Provide(newViper),
		fx.Invoke(logViperConfig),
	)
}

func logViperConfig(logger *zap.Logger, v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		logger.Info("No config file loaded, using environment only")
		return
	}
	logger.Info("Configuration loaded successfully",
		zap.String("configFile", v.ConfigFileUsed()),
		zap.Int("settingsCount", len(v.AllSettings())),
	)
}

// resolveConfigPath picks the explicit path first, then CONFIG_FILE, then
// the per-environment default when that file exists on disk.
func resolveConfigPath(cfg *viperConfig) FilePath {
	if cfg.noConfigFile {
		return ""
	}
	if cfg.configPath != nil {
		return FilePath(*cfg.configPath)
	}
	if configFile := os.Getenv(envConfigFile); configFile != "" {
		return FilePath(configFile)
	}
	if appCfg, err := newAppConfig(); err == nil {
		if _, statErr := os.Stat(appCfg.ConfigFile); statErr == nil {
			return FilePath(appCfg.ConfigFile)
		}
	}
	return ""
}

// ResolveConfigFile applies the NewViperModule lookup to an optional
// explicit path. Empty result means environment only.
func ResolveConfigFile(explicit string) string {
	cfg := &viperConfig{}
	if explicit != "" {
		cfg.configPath = &explicit
	}
	return string(resolveConfigPath(cfg))
}

// NewViper builds a viper instance outside of fx, as the CLI does for
// one-shot commands.
func NewViper(configFile string) (*viper.Viper, error) {
	return newViper(FilePath(configFile))
}

func newViper(configFile FilePath) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(string(configFile))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}

	return v, nil
}

// Section returns the named sub-tree as a standalone viper, or an empty one
// when the section is absent. Environment variables named
// <SECTION>_<KEY> override file values and defaults set later on the result.
func Section(v *viper.Viper, name string) *viper.Viper {
	replacer := strings.NewReplacer(".", "_", "-", "_")

	sub := viper.New()
	sub.SetEnvPrefix(name)
	sub.SetEnvKeyReplacer(replacer)
	sub.AutomaticEnv()
	if section := v.GetStringMap(name); len(section) > 0 {
		_ = sub.MergeConfigMap(section)
	}
	for _, key := range sub.AllKeys() {
		_ = sub.BindEnv(key, strings.ToUpper(replacer.Replace(name+"_"+key)))
	}
	return sub
}
