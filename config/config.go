package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL            string
	Port                   string
	GoEnv                  string
	Auth0Domain            string
	Auth0Audience          string
	AWSRegion              string
	AWSS3Bucket            string
	AWSAccessKeyID         string
	AWSSecretAccessKey     string
	LogLevel               string
	CORSAllowedOrigins     []string
	OrderNumberMaxAttempts int
	CompletedJobsLimit     int
	NotificationsEnabled   bool
	DBMaxOpenConns         int
	DBMaxIdleConns         int
	DBConnMaxLifetime      time.Duration

	// Where the values came from and what was ignored, reported by InitLogger
	EnvFile  string
	Warnings []string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try the environment-specific file first, then .env.
	// In production the environment is set directly and neither exists.
	var envFile string
	if err := godotenv.Load(fmt.Sprintf(".env.%s", env)); err == nil {
		envFile = fmt.Sprintf(".env.%s", env)
	} else if err := godotenv.Load(); err == nil {
		envFile = ".env"
	}

	r := &envReader{}
	config := &Config{
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		Port:                   getEnv("PORT", "8080"),
		GoEnv:                  getEnv("GO_ENV", "development"),
		Auth0Domain:            getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:          getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:            getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		OrderNumberMaxAttempts: r.getInt("ORDER_NUMBER_MAX_ATTEMPTS", 5),
		CompletedJobsLimit:     r.getInt("COMPLETED_JOBS_LIMIT", 50),
		NotificationsEnabled:   r.getBool("NOTIFICATIONS_ENABLED", true),
		DBMaxOpenConns:         r.getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:         r.getInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:      r.getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		EnvFile:                envFile,
	}
	config.Warnings = r.warnings

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OrderNumberMaxAttempts < 1 {
		return fmt.Errorf("ORDER_NUMBER_MAX_ATTEMPTS must be at least 1")
	}
	if c.CompletedJobsLimit < 1 {
		return fmt.Errorf("COMPLETED_JOBS_LIMIT must be at least 1")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the loaded configuration, or defaults when Load has not run
func GetConfig() *Config {
	if appConfig == nil {
		return Defaults()
	}
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// Defaults returns a configuration with every optional value at its default
func Defaults() *Config {
	return &Config{
		Port:                   "8080",
		GoEnv:                  "development",
		AWSRegion:              "us-east-1",
		LogLevel:               "info",
		CORSAllowedOrigins:     []string{"http://localhost:3000"},
		OrderNumberMaxAttempts: 5,
		CompletedJobsLimit:     50,
		NotificationsEnabled:   true,
		DBMaxOpenConns:         25,
		DBMaxIdleConns:         5,
		DBConnMaxLifetime:      30 * time.Minute,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed values, collecting a warning for each one it ignores
type envReader struct {
	warnings []string
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.ignore(key, value)
		return defaultValue
	}
	return parsed
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.ignore(key, value)
		return defaultValue
	}
	return parsed
}

func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.ignore(key, value)
		return defaultValue
	}
	return parsed
}

func (r *envReader) ignore(key, value string) {
	r.warnings = append(r.warnings, fmt.Sprintf("ignoring invalid %s=%q, using the default", key, value))
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
