// Package logger provides the process-wide logger used by all mvnoci components.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.SugaredLogger
	once sync.Once
)

// Initialize sets up the global logger. Safe to call more than once; only the
// first call takes effect.
func Initialize(debug bool) {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if debug {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// Fall back to a no-op logger rather than failing the process.
			l = zap.NewNop()
		}
		log = l.Sugar()
	})
}

func ensure() *zap.SugaredLogger {
	if log == nil {
		Initialize(false)
	}
	return log
}

// Debug logs a message at debug level.
func Debug(args ...any) { ensure().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { ensure().Debugf(format, args...) }

// Info logs a message at info level.
func Info(args ...any) { ensure().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { ensure().Infof(format, args...) }

// Warn logs a message at warn level.
func Warn(args ...any) { ensure().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { ensure().Warnf(format, args...) }

// Error logs a message at error level.
func Error(args ...any) { ensure().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { ensure().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits.
func Fatalf(format string, args ...any) { ensure().Fatalf(format, args...) }
