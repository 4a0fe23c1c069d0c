package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const defaultThrottleInterval = 5 * time.Minute

// LogThrottler emits a message at its real level once per interval per key
// and demotes repeats to DEBUG. Instances do not share limiters.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map // map[string]*rate.Limiter
	interval time.Duration
}

// NewLogThrottler creates a LogThrottler. Zero interval means 5 minutes.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs as WARN once per interval per key, DEBUG otherwise.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	t.logAt(zapcore.WarnLevel, key, msg, fields)
}

// Error logs as ERROR once per interval per key, DEBUG otherwise.
func (t *LogThrottler) Error(key string, msg string, fields ...zap.Field) {
	t.logAt(zapcore.ErrorLevel, key, msg, fields)
}

func (t *LogThrottler) logAt(level zapcore.Level, key, msg string, fields []zap.Field) {
	if t.getLimiter(key).Allow() {
		t.log.Log(level, msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

func (t *LogThrottler) getLimiter(key string) *rate.Limiter {
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Every(t.interval), 1)
	actual, _ := t.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}
