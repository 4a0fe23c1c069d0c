package logger

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig_DefaultValues(t *testing.T) {
	// Given: viper without logger configuration
	v := viper.New()

	// When: creating config
	cfg, err := newConfig(v)

	// Then: defaults are used
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, zapcore.ErrorLevel, cfg.StacktraceLevel)
	assert.False(t, cfg.Development)
}

func TestNewConfig_ValidConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		development   bool
		expectedLevel zapcore.Level
	}{
		{name: "debug development", level: "debug", development: true, expectedLevel: zapcore.DebugLevel},
		{name: "info production", level: "info", expectedLevel: zapcore.InfoLevel},
		{name: "warn", level: "warn", expectedLevel: zapcore.WarnLevel},
		{name: "upper case error", level: "ERROR", development: true, expectedLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a logger section
			v := viper.New()
			v.Set("logger", map[string]any{
				"level":       tt.level,
				"development": tt.development,
			})

			// When: creating config
			cfg, err := newConfig(v)

			// Then: values are parsed
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLevel, cfg.Level)
			assert.Equal(t, tt.development, cfg.Development)
		})
	}
}

func TestNewConfig_OutputPaths(t *testing.T) {
	// Given: output paths and stacktrace level
	v := viper.New()
	v.Set("logger", map[string]any{
		"output-paths":       []string{"stdout"},
		"error-output-paths": []string{"stderr"},
		"stacktrace-level":   "warn",
	})

	// When: creating config
	cfg, err := newConfig(v)

	// Then: all fields are set
	require.NoError(t, err)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.Equal(t, []string{"stderr"}, cfg.ErrorOutputPaths)
	assert.Equal(t, zapcore.WarnLevel, cfg.StacktraceLevel)
}

func TestNewConfig_InvalidLevel(t *testing.T) {
	for _, key := range []string{"level", "stacktrace-level"} {
		t.Run(key, func(t *testing.T) {
			// Given: an unknown level
			v := viper.New()
			v.Set("logger", map[string]any{key: "verbose"})

			// When: creating config
			_, err := newConfig(v)

			// Then: error names the bad value
			require.Error(t, err)
			assert.Contains(t, err.Error(), "verbose")
		})
	}
}

func TestNewConfig_EnvOverride(t *testing.T) {
	// Given: LOGGER_LEVEL in the environment
	t.Setenv("LOGGER_LEVEL", "debug")
	v := viper.New()

	// When: creating config
	cfg, err := newConfig(v)

	// Then: env wins over the default
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
}

func TestConfig_Validate_BlankPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{"stdout", "  "}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "output-paths[1]")
}
