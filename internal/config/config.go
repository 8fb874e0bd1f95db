package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values come from the environment (a .env file is loaded first and never
// overrides variables that are already set) with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Society backend
	BackendAPIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience. MaxRetries applies to reads only; 0 issues every
	// request exactly once.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration
	RedisURL string // empty = in-memory

	// Sessions
	SessionTTL time.Duration
	JWTSecret  string // empty = tokens are decoded unverified and only checked for expiry

	// Observability
	OTLPEndpoint string

	// Invitation batches
	BatchDBPath string

	// CORS
	CORSAllowedOrigins []string

	// Statements
	CurrencySymbol string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BACKEND_API_URL", "http://localhost:3000")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_RETRIES", 0)
	v.SetDefault("INITIAL_BACKOFF", 100*time.Millisecond)
	v.SetDefault("MAX_CONCURRENCY", 16)
	v.SetDefault("CACHE_TTL", time.Minute)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("BATCH_DB_PATH", "data/batches.db")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("CURRENCY_SYMBOL", "Rs.")
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		BackendAPIURL: strings.TrimRight(v.GetString("BACKEND_API_URL"), "/"),

		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),
		RedisURL: v.GetString("REDIS_URL"),

		SessionTTL: v.GetDuration("SESSION_TTL"),
		JWTSecret:  v.GetString("JWT_SECRET"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		BatchDBPath: v.GetString("BATCH_DB_PATH"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		CurrencySymbol: v.GetString("CURRENCY_SYMBOL"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
