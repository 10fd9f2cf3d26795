// Package logging provides the structured logger used across the node,
// transport, membership and overlay packages. It wraps zap the way the
// rest of the node's ambient stack wraps a third-party library: a small
// process-wide façade instead of threading a logger through every call.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

func init() {
	logger = build(levelFromEnv()).Sugar()
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("RUMORCORE_LOG_LEVEL")) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.ToLower(os.Getenv("RUMORCORE_LOG_FORMAT")) == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel reconfigures the process-wide logger at runtime, used by the
// CLI's --log-level flag.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	var lv zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = zapcore.DebugLevel
	case "warn":
		lv = zapcore.WarnLevel
	case "error":
		lv = zapcore.ErrorLevel
	default:
		lv = zapcore.InfoLevel
	}
	logger = build(lv).Sugar()
}

// Named returns a child logger scoped to a component, e.g. Named("transport").
func Named(name string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Named(name)
}

func Debugw(msg string, kv ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Debugw(msg, kv...)
}

func Infow(msg string, kv ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Infow(msg, kv...)
}

func Warnw(msg string, kv ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Warnw(msg, kv...)
}

func Errorw(msg string, kv ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Errorw(msg, kv...)
}

// Sync flushes any buffered log entries, called once on graceful shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Sync()
}
