package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProduction returns a zap-backed logr.Logger configured for JSON output
// at info level, the default for every long-running opx process.
func NewProduction(component string) (logr.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, func() {}, err
	}
	zl = zl.With(zap.String("component", component))

	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

// NewDevelopment returns a zap-backed logr.Logger with human-readable
// console output, used by cmd/opx-controlplane when OPX_ENV=development.
func NewDevelopment(component string) (logr.Logger, func(), error) {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return logr.Logger{}, func() {}, err
	}
	zl = zl.With(zap.String("component", component))
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

// Log writes fields as key/value pairs against a logr.Logger at the given
// verbosity (0 = info). This keeps call sites terse: Log(logger, 0, "msg", fields).
func Log(logger logr.Logger, level int, msg string, fields Fields) {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	logger.V(level).Info(msg, kv...)
}

// LogError writes fields plus err against a logr.Logger's Error sink.
func LogError(logger logr.Logger, err error, msg string, fields Fields) {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	logger.Error(err, msg, kv...)
}
