package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with key-value convenience methods used across the service.
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// New creates a logger for the given level and environment.
// Production uses JSON encoding; everything else uses the console encoder.
func New(level, environment string) *Logger {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}

	return &Logger{sugar: base.Sugar(), base: base}
}

// NewLogger creates a logger with default level for the given environment.
// Used primarily in tests.
func NewLogger(environment string) *Logger {
	if environment == "test" {
		base := zap.NewNop()
		return &Logger{sugar: base.Sugar(), base: base}
	}
	return New("info", environment)
}

// Zap returns the underlying zap logger for packages that take *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// With returns a child logger with the given key-value pairs attached.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), base: l.base}
}

// ForRequest returns a child logger scoped to one HTTP request.
func (l *Logger) ForRequest(requestID, method, path string) *Logger {
	return l.With("request_id", requestID, "method", method, "path", path)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
