package models

import "time"

// Rate limit config keys, one per gate.
const (
	RatelimitKeyPage    = "page"
	RatelimitKeyContact = "contact"
)

// RatelimitKeys lists every known rate limit config key.
var RatelimitKeys = []string{RatelimitKeyPage, RatelimitKeyContact}

// RatelimitConfig holds the formatted rate for one gate (e.g. "100-M", "5-M").
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
