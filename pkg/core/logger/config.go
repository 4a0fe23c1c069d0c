package logger

import (
	"fmt"
	"strings"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level specifies the minimum logging level.
	Level zapcore.Level

	// Development switches to console encoding with human-readable timestamps.
	// In production mode (false), JSON encoding is used.
	Development bool

	// OutputPaths is a list of URLs or file paths to write logging output to.
	// If empty, defaults to stderr.
	OutputPaths []string

	// ErrorOutputPaths is a list of URLs or file paths to write internal logger errors to.
	ErrorOutputPaths []string

	// StacktraceLevel sets the minimum level at which stacktraces are captured.
	// Defaults to ErrorLevel.
	StacktraceLevel zapcore.Level
}

// DefaultConfig is used when the logger section is absent.
func DefaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

func (c Config) Validate() error {
	if err := validatePaths(c.OutputPaths, "output-paths"); err != nil {
		return err
	}
	return validatePaths(c.ErrorOutputPaths, "error-output-paths")
}

func validatePaths(paths []string, fieldName string) error {
	for i, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%s[%d] cannot be empty or whitespace", fieldName, i)
		}
	}
	return nil
}

// NewConfig reads the "logger" section of v.
func NewConfig(v *viper.Viper) (Config, error) {
	return newConfig(v)
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := config.Section(v, "logger")
	sub.SetDefault("level", "info")
	sub.SetDefault("development", false)
	sub.SetDefault("stacktrace-level", "error")

	var raw struct {
		Level            string   `mapstructure:"level"`
		Development      bool     `mapstructure:"development"`
		OutputPaths      []string `mapstructure:"output-paths"`
		ErrorOutputPaths []string `mapstructure:"error-output-paths"`
		StacktraceLevel  string   `mapstructure:"stacktrace-level"`
	}
	if err := sub.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	level, err := zapcore.ParseLevel(raw.Level)
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
	}

	stacktraceLevel, err := zapcore.ParseLevel(raw.StacktraceLevel)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw.StacktraceLevel, err)
	}

	return Config{
		Level:            level,
		Development:      raw.Development,
		OutputPaths:      raw.OutputPaths,
		ErrorOutputPaths: raw.ErrorOutputPaths,
		StacktraceLevel:  stacktraceLevel,
	}, nil
}
