package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration.
type Config struct {
	// Required variables
	DatabaseURL string
	Port        string

	// Optional variables with defaults
	GoEnv          string
	LogLevel       string
	AllowedOrigins string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	OtelCollectorAddr string

	// Rate limits (Defaults: M = Minute, H = Hour)
	RateLimitAPIGlobal   string
	RateLimitAPIRooms    string
	RateLimitAPIActions  string
	RateLimitAPIMessages string

	CleanupInterval                time.Duration
	CleanupWaitingPlayingThreshold time.Duration
	CleanupFinishedThreshold       time.Duration
}

// ValidateEnv validates all required environment variables and returns a Config
// object. Returns an error if any required variable is missing or invalid.
//
// Authentication is an explicit external collaborator per spec.md §1 (out of
// scope): there is deliberately no JWT/JWKS configuration here.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.OtelCollectorAddr = os.Getenv("OTEL_COLLECTOR_ADDR")

	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIRooms = getEnvOrDefault("RATE_LIMIT_API_ROOMS", "100-M")
	cfg.RateLimitAPIActions = getEnvOrDefault("RATE_LIMIT_API_ACTIONS", "500-M")
	cfg.RateLimitAPIMessages = getEnvOrDefault("RATE_LIMIT_API_MESSAGES", "200-M")

	cfg.CleanupInterval = getEnvDurationOrDefault("CLEANUP_INTERVAL", 6*time.Hour)
	cfg.CleanupWaitingPlayingThreshold = getEnvDurationOrDefault("CLEANUP_WAITING_PLAYING_THRESHOLD", 2*time.Hour)
	cfg.CleanupFinishedThreshold = getEnvDurationOrDefault("CLEANUP_FINISHED_THRESHOLD", 24*time.Hour)

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)
	return cfg, nil
}

func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}
	return parts[0] != ""
}

func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated successfully")
	slog.Info("configuration",
		"database_url", redactSecret(cfg.DatabaseURL),
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"cleanup_interval", cfg.CleanupInterval,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}

// redactSecret shows only the first 8 characters, used for connection strings
// that may embed credentials.
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
