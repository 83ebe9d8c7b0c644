package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// InitLogger builds a development logger at the given level and keeps it for Cleanup.
// Unknown levels fall back to info.
func InitLogger(logLevelStr string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()

	var level zapcore.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn", "warning":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	globalLogger = logger
	return logger, nil
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
