package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                 string
	Environment          string
	BasePath             string
	UpstreamBaseURL      string
	UpstreamTimeout      time.Duration
	DatabaseURL          string
	RunMigrations        bool
	MigrationsDir        string
	SessionSecret        string
	DataEncryptionKey    string
	SessionCookieName    string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	FrontendDir          string
	Locale               string
	Timezone             string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	ListStateCacheSize   int
	MetricsEnabled       bool
	LogLevel             string
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		Environment:          getEnv("APP_ENV", "development"),
		BasePath:             normalizeBasePath(getEnv("BASE_PATH", "/managerHR")),
		UpstreamBaseURL:      strings.TrimRight(getEnv("UPSTREAM_API_URL", ""), "/"),
		UpstreamTimeout:      getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "hr_session"),
		SessionTTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),
		FrontendDir:          getEnv("FRONTEND_DIR", "frontend/dist"),
		Locale:               getEnv("LOCALE", "vi"),
		Timezone:             getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 10<<20)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ListStateCacheSize:   getEnvInt("LIST_STATE_CACHE_SIZE", 4096),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location falls back to UTC when the configured zone is unknown to the host.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeBasePath(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.UpstreamBaseURL) == "" {
		return fmt.Errorf("UPSTREAM_API_URL is required")
	}
	parsed, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("UPSTREAM_API_URL must be an absolute URL")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.IsProduction() {
		if len(strings.TrimSpace(c.SessionSecret)) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL must be set in production so sessions survive restarts")
		}
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least one minute")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ListStateCacheSize <= 0 {
		return fmt.Errorf("LIST_STATE_CACHE_SIZE must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known zone: %w", c.Timezone, err)
	}
	return nil
}
