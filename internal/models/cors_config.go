package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CorsConfigKeyAPI is the row key for the /api/v1 policy.
const CorsConfigKeyAPI = "api"

var (
	ErrNoOrigins           = errors.New("at least one allowed origin is required")
	ErrInvalidOrigin       = errors.New("invalid origin")
	ErrWildcardCredentials = errors.New("credentials cannot be allowed for the wildcard origin")
	ErrNegativeCorsMaxAge  = errors.New("max_age cannot be negative")
)

// CorsConfig holds the cross-origin policy for the JSON API.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // Comma-separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Origins returns the configured origins, trimmed and deduplicated.
func (c *CorsConfig) Origins() []string {
	return SplitOrigins(c.AllowedOrigins)
}

// Validate checks that every origin is "*" or a bare http(s) scheme://host[:port].
func (c *CorsConfig) Validate() error {
	origins := c.Origins()
	if len(origins) == 0 {
		return ErrNoOrigins
	}
	for _, o := range origins {
		if o == "*" {
			if c.AllowCredentials {
				return ErrWildcardCredentials
			}
			continue
		}
		if err := validateOrigin(o); err != nil {
			return err
		}
	}
	if c.MaxAge < 0 {
		return ErrNegativeCorsMaxAge
	}
	return nil
}

func validateOrigin(o string) error {
	u, err := url.Parse(o)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidOrigin, o, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidOrigin, o)
	}
	if u.Host == "" || u.User != nil {
		return fmt.Errorf("%w %q: host required", ErrInvalidOrigin, o)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w %q: an origin has no path or query", ErrInvalidOrigin, o)
	}
	return nil
}

// SplitOrigins splits a comma-separated origin list. Trailing slashes are
// dropped so "https://a.example/" and "https://a.example" are one origin.
func SplitOrigins(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimRight(strings.TrimSpace(p), "/")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
