package logger

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Modes(t *testing.T) {
	for _, development := range []bool{true, false} {
		// Given: a configuration
		cfg := Config{Level: zapcore.DebugLevel, Development: development, StacktraceLevel: zapcore.ErrorLevel}

		// When: creating logger
		log, atomicLevel, err := newLogger(cfg, config.AppConfig{})

		// Then: logger is created with the requested level
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, zapcore.DebugLevel, atomicLevel.Level())
		_ = log.Sync()
	}
}

func TestNewLogger_ReplacesGlobals(t *testing.T) {
	// Given: a fresh logger
	log, _, err := newLogger(DefaultConfig(), config.AppConfig{})
	require.NoError(t, err)

	// Then: the global logger is the new one
	assert.Same(t, log, zap.L())
}

func TestNewLogger_AtomicLevelIsAdjustable(t *testing.T) {
	// Given: an info logger
	log, atomicLevel, err := newLogger(DefaultConfig(), config.AppConfig{})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.DebugLevel))

	// When: lowering the level at runtime
	atomicLevel.SetLevel(zapcore.DebugLevel)

	// Then: debug becomes enabled
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_ServiceFields(t *testing.T) {
	// Given: a logger writing to a temp file
	out := t.TempDir() + "/relay.log"
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{out}
	app := config.AppConfig{ServiceName: "order-service", Environment: "stage", ServiceVersion: "1.2.0"}

	// When: logging a line
	log, _, err := newLogger(cfg, app)
	require.NoError(t, err)
	log.Info("record delivered")
	require.NoError(t, log.Sync())

	// Then: the line carries the service identity
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"order-service"`)
	assert.Contains(t, string(data), `"env":"stage"`)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorOutputPaths = []string{""}

	_, _, err := newLogger(cfg, config.AppConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestIgnoreSyncError(t *testing.T) {
	assert.NoError(t, ignoreSyncError(nil))
	assert.NoError(t, ignoreSyncError(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}))
	assert.NoError(t, ignoreSyncError(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.ENOTTY}))

	other := errors.New("disk full")
	assert.ErrorIs(t, ignoreSyncError(other), other)
}
