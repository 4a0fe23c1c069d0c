package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogThrottler_DefaultInterval(t *testing.T) {
	throttler := NewLogThrottler(zap.NewNop(), 0)

	require.NotNil(t, throttler)
	assert.Equal(t, defaultThrottleInterval, throttler.interval)
}

func TestLogThrottler_Warn_FirstCallThenDebug(t *testing.T) {
	// Given: a throttler with a long interval
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: logging the same key three times
	for range 3 {
		throttler.Warn("acquire", "acquire failed", zap.String("table", "outbox"))
	}

	// Then: only the first is WARN
	require.Equal(t, 3, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "outbox", logs.All()[0].ContextMap()["table"])
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[2].Level)
}

func TestLogThrottler_Error_UsesErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	throttler.Error("k", "boom")
	throttler.Error("k", "boom")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}

func TestLogThrottler_KeysAreIndependent(t *testing.T) {
	// Given: a throttler
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: logging different keys
	throttler.Warn("a", "msg a")
	throttler.Warn("b", "msg b")

	// Then: both are WARN
	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
	}
}

func TestLogThrottler_IntervalElapses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), 20*time.Millisecond)

	throttler.Warn("k", "msg")
	time.Sleep(40 * time.Millisecond)
	throttler.Warn("k", "msg")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestLogThrottler_ConcurrentAccess(t *testing.T) {
	// Given: a throttler shared by many goroutines
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: all log the same key
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			throttler.Warn("shared", "msg")
		}()
	}
	wg.Wait()

	// Then: exactly one WARN got through
	assert.Equal(t, 50, logs.Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
