package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppConfig_Success(t *testing.T) {
	// Arrange
	os.Clearenv()
	t.Setenv(envAppEnv, "test")
	t.Setenv(envAppServiceName, "relay-test")
	t.Setenv(envAppServiceVersion, "1.0.0")

	// Act
	cfg, err := newAppConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "relay-test", cfg.ServiceName)
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)
	assert.Equal(t, filepath.Join(defaultConfigDir, "config.test.yaml"), cfg.ConfigFile)
}

func TestNewAppConfig_MissingAppEnv(t *testing.T) {
	// Arrange
	os.Clearenv()

	// Act
	_, err := newAppConfig()

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAppEnv)
}

func TestNewAppConfig_ServiceDefaults(t *testing.T) {
	// Arrange
	os.Clearenv()
	t.Setenv(envAppEnv, "local")

	// Act
	cfg, err := newAppConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, defaultServiceVersion, cfg.ServiceVersion)
}

func TestNewAppConfig_ConfigFileResolution(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name:     "explicit file",
			env:      map[string]string{envConfigFile: "/custom/path/config.yaml"},
			expected: "/custom/path/config.yaml",
		},
		{
			name:     "custom dir",
			env:      map[string]string{envConfigDir: "/etc/relay"},
			expected: filepath.Join("/etc/relay", "config.staging.yaml"),
		},
		{
			name:     "custom name",
			env:      map[string]string{envConfigName: "relay"},
			expected: filepath.Join(defaultConfigDir, "relay.yaml"),
		},
		{
			name:     "custom dir and name",
			env:      map[string]string{envConfigDir: "/opt/config", envConfigName: "app"},
			expected: filepath.Join("/opt/config", "app.yaml"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			os.Clearenv()
			t.Setenv(envAppEnv, "staging")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			// Act
			cfg, err := newAppConfig()

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.ConfigFile)
		})
	}
}

func TestAppConfig_IsProduction(t *testing.T) {
	assert.True(t, AppConfig{Environment: EnvProduction}.IsProduction())
	assert.False(t, AppConfig{Environment: "staging"}.IsProduction())
	assert.False(t, AppConfig{}.IsProduction())
}
