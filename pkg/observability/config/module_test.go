package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideConfig_Defaults(t *testing.T) {
	cfg, err := provideConfig(&configOptions{}, viper.New(), zap.NewNop())

	require.NoError(t, err)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultSampleRatio, cfg.Tracing.SampleRatio)
	assert.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
}

func TestProvideConfig_EnvOverride(t *testing.T) {
	t.Setenv("OBSERVABILITY_OTEL_COLLECTOR_ENDPOINT", "otel:4317")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_INTERVAL", "30s")

	cfg, err := provideConfig(&configOptions{}, viper.New(), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "otel:4317", cfg.OtelCollectorEndpoint)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)
}

func TestProvideConfig_DisableOptionsWin(t *testing.T) {
	static := Config{
		OtelCollectorEndpoint: "otel:4317",
		Tracing:               TracingConfig{Enabled: true},
		Metrics:               MetricsConfig{Enabled: true},
	}
	opts := &configOptions{config: &static, disableTracing: true, disableMetrics: true}

	cfg, err := provideConfig(opts, viper.New(), zap.NewNop())

	require.NoError(t, err)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("metrics without endpoint", func(t *testing.T) {
		cfg := Config{Metrics: MetricsConfig{Enabled: true}}

		assert.ErrorIs(t, cfg.Validate(), errMetricsEndpoint)
	})

	t.Run("sample ratio out of range", func(t *testing.T) {
		cfg := Config{Tracing: TracingConfig{SampleRatio: 1.5}}

		assert.ErrorIs(t, cfg.Validate(), errSampleRatio)
	})
}
