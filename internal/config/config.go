package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Backends
	IngestionURL string // Backend 1: login, sync, CSV upload
	QueryURL     string // Backend 2: metrics and time series

	// HTTP client
	HTTPTimeout   time.Duration
	UploadTimeout time.Duration

	// Resilience
	MaxConcurrency int

	// Sync
	SyncReloadDelay time.Duration
	SyncMinInterval time.Duration
	SyncBurst       int

	// Session
	SessionFile     string // empty keeps the token in memory only
	SessionKey      string // empty stores the token unsealed
	SessionTokenKey string

	// HTTP surface
	CORSOrigins []string // empty disables CORS headers

	// Observability
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8090),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		IngestionURL: getEnv("BACKEND1_URL", "http://localhost:5000"),
		QueryURL:     getEnv("BACKEND2_URL", "http://localhost:8080"),

		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		UploadTimeout: getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		SyncReloadDelay: getEnvDuration("SYNC_RELOAD_DELAY", 2*time.Second),
		SyncMinInterval: getEnvDuration("SYNC_MIN_INTERVAL", 2*time.Second),
		SyncBurst:       getEnvInt("SYNC_BURST", 1),

		SessionFile:     getEnv("SESSION_FILE", ""),
		SessionKey:      getEnv("SESSION_KEY", ""),
		SessionTokenKey: getEnv("SESSION_TOKEN_KEY", "jwt_token"),

		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("SERVICE_NAME", "orders-dashboard"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value. "-" yields an empty list.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if v == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
