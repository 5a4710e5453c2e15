package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/portfolio/internal/ratelimit"
)

const (
	// StoreMemory keeps rate limit records in process memory.
	StoreMemory = "memory"
	// StoreRedis keeps rate limit records in Redis, shared across replicas.
	StoreRedis = "redis"

	// DefaultContentSecurityPolicy is the policy the site has always shipped with.
	DefaultContentSecurityPolicy = "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.tailwindcss.com https://unpkg.com https://cdnjs.cloudflare.com; " +
		"style-src 'self' 'unsafe-inline' https://cdnjs.cloudflare.com; " +
		"img-src 'self' data: blob: https:; " +
		"font-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-src 'none'; " +
		"object-src 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'; " +
		"frame-ancestors 'none'"
)

// Config holds application configuration
type Config struct {
	ServerPort            string
	StaticDir             string
	FrontendURL           string
	EnableHSTS            bool
	ContentSecurityPolicy string
	PageRateLimit         string
	ContactRateLimit      string
	RateLimitStore        string
	RedisURL              string
	SweepInterval         time.Duration
	DatabaseURL           string
	ReloadInterval        time.Duration
	RabbitMQURL           string
	RabbitMQPrefetch      int
	ContactMessageTTL     time.Duration
	ServerDebugMode       bool
	LogFormat             string
	OTELEnabled           bool
	OTELEndpoint          string
	OTELServiceName       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		StaticDir:             getEnv("STATIC_DIR", "./web"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:            getEnvBool("ENABLE_HSTS", true),
		ContentSecurityPolicy: getEnv("CONTENT_SECURITY_POLICY", DefaultContentSecurityPolicy),
		PageRateLimit:         getEnv("PAGE_RATE_LIMIT", "100-M"),
		ContactRateLimit:      getEnv("CONTACT_RATE_LIMIT", "5-M"),
		RateLimitStore:        strings.ToLower(getEnv("RATE_LIMIT_STORE", StoreMemory)),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SweepInterval:         getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		ReloadInterval:        getEnvDuration("CONFIG_RELOAD_INTERVAL", time.Minute),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:      getEnvInt("RABBITMQ_PREFETCH", 10),
		ContactMessageTTL:     getEnvDuration("CONTACT_MESSAGE_TTL", 24*time.Hour),
		ServerDebugMode:       getEnvBool("SERVER_DEBUG_MODE", false),
		LogFormat:             strings.ToLower(getEnv("LOG_FORMAT", "json")),
		OTELEnabled:           getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName:       getEnv("OTEL_SERVICE_NAME", "portfolio-site"),
	}

	if _, err := ratelimit.ParsePolicy(cfg.PageRateLimit); err != nil {
		return nil, fmt.Errorf("PAGE_RATE_LIMIT: %w", err)
	}
	if _, err := ratelimit.ParsePolicy(cfg.ContactRateLimit); err != nil {
		return nil, fmt.Errorf("CONTACT_RATE_LIMIT: %w", err)
	}

	if cfg.RabbitMQPrefetch < 1 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be at least 1, got %d", cfg.RabbitMQPrefetch)
	}

	switch cfg.RateLimitStore {
	case StoreMemory, StoreRedis:
	default:
		return nil, fmt.Errorf("RATE_LIMIT_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, cfg.RateLimitStore)
	}

	return cfg, nil
}

// PagePolicy returns the parsed page-level gate policy. Load has already validated it.
func (c *Config) PagePolicy() ratelimit.Policy {
	p, _ := ratelimit.ParsePolicy(c.PageRateLimit)
	return p
}

// ContactPolicy returns the parsed contact submission policy.
func (c *Config) ContactPolicy() ratelimit.Policy {
	p, _ := ratelimit.ParsePolicy(c.ContactRateLimit)
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
