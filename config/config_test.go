package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for key, value := range values {
		original, had := os.LookupEnv(key)
		os.Setenv(key, value)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_URL":              "postgresql://localhost/test",
		"CORS_ALLOWED_ORIGINS":      "https://app.example.com, https://admin.example.com",
		"ORDER_NUMBER_MAX_ATTEMPTS": "3",
		"COMPLETED_JOBS_LIMIT":      "20",
		"NOTIFICATIONS_ENABLED":     "false",
	})
	defer SetConfig(nil)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgresql://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3, cfg.OrderNumberMaxAttempts)
	assert.Equal(t, 20, cfg.CompletedJobsLimit)
	assert.False(t, cfg.NotificationsEnabled)
	assert.True(t, cfg.IsTest())
	assert.Same(t, cfg, GetConfig())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setEnv(t, map[string]string{"DATABASE_URL": ""})

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_URL":              "postgresql://localhost/test",
		"ORDER_NUMBER_MAX_ATTEMPTS": "many",
		"NOTIFICATIONS_ENABLED":     "sometimes",
	})
	defer SetConfig(nil)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.OrderNumberMaxAttempts)
	assert.True(t, cfg.NotificationsEnabled)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)

	// Kept for InitLogger, which runs after Load
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "ORDER_NUMBER_MAX_ATTEMPTS")
	assert.Contains(t, cfg.Warnings[1], "NOTIFICATIONS_ENABLED")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero attempts", func(c *Config) { c.OrderNumberMaxAttempts = 0 }, "ORDER_NUMBER_MAX_ATTEMPTS must be at least 1"},
		{"zero completed limit", func(c *Config) { c.CompletedJobsLimit = 0 }, "COMPLETED_JOBS_LIMIT must be at least 1"},
		{"no origins", func(c *Config) { c.CORSAllowedOrigins = nil }, "CORS_ALLOWED_ORIGINS must list at least one origin"},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.DatabaseURL = "postgresql://localhost/test"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestGetConfig_DefaultsWhenNotLoaded(t *testing.T) {
	SetConfig(nil)
	cfg := GetConfig()
	assert.Equal(t, 50, cfg.CompletedJobsLimit)
	assert.Equal(t, "8080", cfg.Port)
}

func TestInitLogger(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "debug"
	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	// Load's findings come out once the logger exists
	core, logs := observer.New(zapcore.InfoLevel)
	cfg.Warnings = []string{"ignoring invalid DB_MAX_OPEN_CONNS=\"lots\", using the default"}
	logger, err = InitLogger(cfg, zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("No .env file found, using system environment variables").Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	cfg.LogLevel = "chatty"
	_, err = InitLogger(cfg)
	assert.Error(t, err)
}
