package env

import (
	"fmt"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds a JSON logger writing to the configured log file, with
// the logger's own errors going to stderr.
func MakeLogger(cfg *Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("Invalid log level '%s': %w", cfg.LogLevel, err)
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(level)
	logConfig.Encoding = "json"
	logConfig.OutputPaths = []string{cfg.LogPath}
	logConfig.ErrorOutputPaths = []string{"stderr"}

	return logConfig.Build()
}
