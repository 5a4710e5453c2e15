package config

import (
	"testing"
	"time"
)

// configEnvVars lists every variable Load reads so each case starts clean.
var configEnvVars = []string{
	"SERVER_PORT",
	"STATIC_DIR",
	"FRONTEND_URL",
	"ENABLE_HSTS",
	"CONTENT_SECURITY_POLICY",
	"PAGE_RATE_LIMIT",
	"CONTACT_RATE_LIMIT",
	"RATE_LIMIT_STORE",
	"REDIS_URL",
	"RATE_LIMIT_SWEEP_INTERVAL",
	"DATABASE_URL",
	"CONFIG_RELOAD_INTERVAL",
	"RABBITMQ_URL",
	"RABBITMQ_PREFETCH",
	"CONTACT_MESSAGE_TTL",
	"SERVER_DEBUG_MODE",
	"LOG_FORMAT",
	"OTEL_ENABLED",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_SERVICE_NAME",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name:        "default values",
			envVars:     map[string]string{},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ServerPort != "8080" {
					t.Errorf("Expected default ServerPort to be '8080', got '%s'", cfg.ServerPort)
				}
				if cfg.StaticDir != "./web" {
					t.Errorf("Expected default StaticDir to be './web', got '%s'", cfg.StaticDir)
				}
				if !cfg.EnableHSTS {
					t.Error("Expected EnableHSTS to default to true")
				}
				if cfg.RateLimitStore != StoreMemory {
					t.Errorf("Expected default RateLimitStore %q, got %q", StoreMemory, cfg.RateLimitStore)
				}
				if cfg.DatabaseURL != "" {
					t.Errorf("Expected DatabaseURL to be optional, got '%s'", cfg.DatabaseURL)
				}
				if cfg.RabbitMQPrefetch != 10 {
					t.Errorf("Expected default RabbitMQPrefetch 10, got %d", cfg.RabbitMQPrefetch)
				}
				if cfg.LogFormat != "json" {
					t.Errorf("Expected default LogFormat 'json', got '%s'", cfg.LogFormat)
				}
				if cfg.OTELServiceName != "portfolio-site" {
					t.Errorf("Expected default OTELServiceName 'portfolio-site', got '%s'", cfg.OTELServiceName)
				}
				if cfg.ContentSecurityPolicy != DefaultContentSecurityPolicy {
					t.Error("Expected default content security policy")
				}
				page := cfg.PagePolicy()
				if page.Limit != 100 || page.Window != time.Minute {
					t.Errorf("Expected page policy 100/1m, got %d/%s", page.Limit, page.Window)
				}
				contact := cfg.ContactPolicy()
				if contact.Limit != 5 || contact.Window != time.Minute {
					t.Errorf("Expected contact policy 5/1m, got %d/%s", contact.Limit, contact.Window)
				}
			},
		},
		{
			name: "overrides",
			envVars: map[string]string{
				"SERVER_PORT":               "9090",
				"PAGE_RATE_LIMIT":           "10-S",
				"RATE_LIMIT_STORE":          "Redis",
				"RATE_LIMIT_SWEEP_INTERVAL": "30",
				"CONTACT_MESSAGE_TTL":       "2h",
				"ENABLE_HSTS":               "false",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ServerPort != "9090" {
					t.Errorf("Expected ServerPort to be '9090', got '%s'", cfg.ServerPort)
				}
				if cfg.RateLimitStore != StoreRedis {
					t.Errorf("Expected RateLimitStore %q, got %q", StoreRedis, cfg.RateLimitStore)
				}
				if cfg.SweepInterval != 30*time.Second {
					t.Errorf("Expected SweepInterval 30s, got %s", cfg.SweepInterval)
				}
				if cfg.ContactMessageTTL != 2*time.Hour {
					t.Errorf("Expected ContactMessageTTL 2h, got %s", cfg.ContactMessageTTL)
				}
				if cfg.EnableHSTS {
					t.Error("Expected EnableHSTS to be false")
				}
				if p := cfg.PagePolicy(); p.Limit != 10 || p.Window != time.Second {
					t.Errorf("Expected page policy 10/1s, got %d/%s", p.Limit, p.Window)
				}
			},
		},
		{
			name:        "invalid page rate",
			envVars:     map[string]string{"PAGE_RATE_LIMIT": "lots"},
			expectError: true,
		},
		{
			name:        "invalid contact rate",
			envVars:     map[string]string{"CONTACT_RATE_LIMIT": "0-M"},
			expectError: true,
		},
		{
			name:        "invalid prefetch",
			envVars:     map[string]string{"RABBITMQ_PREFETCH": "0"},
			expectError: true,
		},
		{
			name:        "unknown store",
			envVars:     map[string]string{"RATE_LIMIT_STORE": "memcached"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if cfg == nil {
				t.Fatal("Config is nil")
			}

			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "90s", want: 90 * time.Second},
		{name: "bare seconds", value: "45", want: 45 * time.Second},
		{name: "unset", value: "", want: time.Minute},
		{name: "garbage", value: "soon", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_KEY", tt.value)
			got := getEnvDuration("TEST_DURATION_KEY", time.Minute)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL_KEY", tt.value)
			if got := getEnvBool("TEST_BOOL_KEY", !tt.want); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
