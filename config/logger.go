package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the process logger for the given level and installs it
// as the zap global so packages can log through zap.S(). It then reports what
// Load found, since Load runs before any logger exists.
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build(append([]zap.Option{zap.AddCaller()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	if cfg.EnvFile != "" {
		logger.Info("Loaded configuration", zap.String("file", cfg.EnvFile))
	} else {
		logger.Info("No .env file found, using system environment variables")
	}
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}
	return logger, nil
}
