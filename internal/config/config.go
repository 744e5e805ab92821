package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/logger"

	"github.com/fanloremedia/fanlore/pkg/database"
)

// Config holds all configuration for the sync pipeline.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Sync configuration
	Sync SyncConfig

	// Monetization configuration
	Monetization MonetizationConfig

	// NATS configuration (optional; disabled when URL is empty)
	NATS NATSConfig

	// Environment is development or production
	Environment string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// SyncConfig holds batch-run configuration
type SyncConfig struct {
	PageSize      int
	FetchTimeout  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	SourceBaseURL string
	SourceAPIKey  string
}

// MonetizationConfig holds the affiliate provider allow-list.
type MonetizationConfig struct {
	AllowedProviders []string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL           string
	StreamName    string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "fanlore"),
			Password:     getEnv("DB_PASSWORD", "fanlore"),
			Database:     getEnv("DB_NAME", "fanlore"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Sync: SyncConfig{
			PageSize:      getEnvAsInt("SYNC_PAGE_SIZE", 50),
			FetchTimeout:  getEnvAsDuration("SYNC_FETCH_TIMEOUT", 30*time.Second),
			MaxRetries:    getEnvAsInt("SYNC_MAX_RETRIES", 3),
			RetryBackoff:  getEnvAsDuration("SYNC_RETRY_BACKOFF", 2*time.Second),
			SourceBaseURL: getEnv("SOURCE_BASE_URL", ""),
			SourceAPIKey:  getEnv("SOURCE_API_KEY", ""),
		},
		Monetization: MonetizationConfig{
			AllowedProviders: getEnvAsSlice("AFFILIATE_ALLOWED_PROVIDERS",
				[]string{"tabelog.com", "rakuten.co.jp", "amazon.co.jp", "valuecommerce.com"}),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			StreamName:    getEnv("NATS_STREAM", "CATALOG"),
			MaxReconnect:  getEnvAsInt("NATS_MAX_RECONNECT", 60),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	return cfg, nil
}

// ToPostgresConfig converts the database section into the shape the
// database package expects.
func (d DatabaseConfig) ToPostgresConfig() *database.PostgresConfig {
	cfg := database.DefaultPostgresConfig()
	cfg.Host = d.Host
	cfg.Port = d.Port
	cfg.User = d.User
	cfg.Password = d.Password
	cfg.Database = d.Database
	cfg.SSLMode = d.SSLMode
	cfg.MaxConnections = d.MaxOpenConns
	cfg.MinConnections = d.MaxIdleConns
	cfg.MaxConnLifetime = d.MaxLifetime
	cfg.LogLevel = logger.Warn
	return cfg
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
