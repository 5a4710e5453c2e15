package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/portfolio/internal/models"
)

// CorsConfigRepository stores the /api/v1 cross-origin policy.
type CorsConfigRepository struct {
	db  *DB
	now func() time.Time
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db, now: time.Now}
}

// Get returns the stored policy, or (nil, nil) when none is stored and the
// server should fall back to FRONTEND_URL.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1
	`, models.CorsConfigKeyAPI).Scan(
		&c.ConfigKey,
		&c.AllowedOrigins,
		&c.AllowCredentials,
		&c.MaxAge,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cors config: %w", err)
	}
	return c, nil
}

// Set validates and upserts the policy. Origins are stored normalised.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at
	`, models.CorsConfigKeyAPI, strings.Join(c.Origins(), ","), c.AllowCredentials, c.MaxAge, now)
	if err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	return nil
}

// Delete removes the stored policy so the server returns to FRONTEND_URL on its
// next reload. It reports whether a row existed.
func (r *CorsConfigRepository) Delete(ctx context.Context) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cors_config WHERE config_key = $1`, models.CorsConfigKeyAPI)
	if err != nil {
		return false, fmt.Errorf("delete cors config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete cors config: %w", err)
	}
	return n > 0, nil
}
