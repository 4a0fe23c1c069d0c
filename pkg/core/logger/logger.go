package logger

import (
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger and installs it as the zap global,
// which FromContext falls back to. Every entry carries the service identity
// so relay logs from several services can share one index.
func newLogger(conf Config, app config.AppConfig) (*zap.Logger, zap.AtomicLevel, error) {
	if err := conf.Validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logger configuration validation failed: %w", err)
	}

	zc := zap.NewProductionConfig()
	if conf.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := zap.NewAtomicLevelAt(conf.Level)
	zc.Level = level
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(conf.OutputPaths) > 0 {
		zc.OutputPaths = conf.OutputPaths
	}
	if len(conf.ErrorOutputPaths) > 0 {
		zc.ErrorOutputPaths = conf.ErrorOutputPaths
	}

	var fields []zap.Field
	if app.ServiceName != "" {
		fields = append(fields, zap.String("service", app.ServiceName))
	}
	if app.Environment != "" {
		fields = append(fields, zap.String("env", app.Environment))
	}

	log, err := zc.Build(
		zap.AddStacktrace(conf.StacktraceLevel),
		zap.Fields(fields...),
	)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	zap.ReplaceGlobals(log)

	log.Debug("logger initialized",
		zap.Stringer("level", conf.Level),
		zap.Bool("development", conf.Development),
		zap.String("version", app.ServiceVersion),
	)
	return log, level, nil
}
