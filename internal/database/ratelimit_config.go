package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/benvon/portfolio/internal/models"
)

// ErrUnknownRatelimitKey is returned for a config key no gate uses.
var ErrUnknownRatelimitKey = errors.New("unknown ratelimit config key")

// RatelimitConfigRepository handles per-gate rate limit configuration in the database.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get retrieves the rate limit config for key. A missing row yields (nil, nil).
func (r *RatelimitConfigRepository) Get(ctx context.Context, key string) (*models.RatelimitConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`, key)
	c := &models.RatelimitConfig{}
	err := row.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config %q: %w", key, err)
	}
	return c, nil
}

// List returns every stored rate limit config ordered by key.
func (r *RatelimitConfigRepository) List(ctx context.Context) ([]*models.RatelimitConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config ORDER BY config_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*models.RatelimitConfig
	for rows.Next() {
		c := &models.RatelimitConfig{}
		if err := rows.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ratelimit config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	return out, nil
}

// Set upserts the rate for c.ConfigKey. Rate format: e.g. "5-M", "100-M".
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	if err := ValidateRatelimitConfig(c); err != nil {
		return err
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, c.ConfigKey, strings.TrimSpace(c.Rate), now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config %q: %w", c.ConfigKey, err)
	}
	return nil
}

// ValidateRatelimitConfig checks the key is known and the rate is non-empty.
func ValidateRatelimitConfig(c *models.RatelimitConfig) error {
	if c == nil {
		return fmt.Errorf("ratelimit config is nil")
	}
	if !slices.Contains(models.RatelimitKeys, c.ConfigKey) {
		return fmt.Errorf("%w %q", ErrUnknownRatelimitKey, c.ConfigKey)
	}
	if strings.TrimSpace(c.Rate) == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	return nil
}
