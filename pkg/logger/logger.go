// Package logger provides the process-wide logging facility, backed by zap.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface used across the bot.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

var (
	base *zap.Logger
	std  *zap.SugaredLogger
)

func init() {
	base = newZapLogger("info")
	std = base.Sugar()
}

func newZapLogger(logLevel string) *zap.Logger {
	level := zapcore.InfoLevel
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	case "fatal":
		level = zapcore.FatalLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Building the default production config cannot fail with these
		// settings; fall back to a no-op logger rather than panic at init.
		return zap.NewNop()
	}
	return l
}

// SetGlobalLogLevel reconfigures the global logger's level.
// logLevel is one of "debug", "info", "warn", "error", "fatal".
func SetGlobalLogLevel(logLevel string) {
	base = newZapLogger(logLevel)
	std = base.Sugar()
}

// Zap returns the underlying zap logger for components that log structurally.
func Zap() *zap.Logger {
	return base.WithOptions(zap.AddCallerSkip(-1))
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() error {
	return base.Sync()
}

// Debug logs a debug message using the global logger.
func Debug(args ...interface{}) { std.Debug(args...) }

// Debugf logs a debug message with formatting.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Info logs an informational message using the global logger.
func Info(args ...interface{}) { std.Info(args...) }

// Infof logs an informational message with formatting.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warn logs a warning message.
func Warn(args ...interface{}) { std.Warn(args...) }

// Warnf logs a warning message with formatting.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Error logs an error message.
func Error(args ...interface{}) { std.Error(args...) }

// Errorf logs an error message with formatting.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fatal logs a fatal error message and exits.
func Fatal(args ...interface{}) { std.Fatal(args...) }

// Fatalf logs a fatal error message with formatting and exits.
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
