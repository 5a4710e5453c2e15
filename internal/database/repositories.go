package database

import (
	"context"

	"github.com/benvon/portfolio/internal/models"
)

// RatelimitConfigStore reads and writes per-gate rate limit configuration.
type RatelimitConfigStore interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	List(ctx context.Context) ([]*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// CorsConfigStore reads and writes the API CORS configuration.
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
	Delete(ctx context.Context) (bool, error)
}

// Ensure concrete types implement the interfaces
var (
	_ RatelimitConfigStore = (*RatelimitConfigRepository)(nil)
	_ CorsConfigStore      = (*CorsConfigRepository)(nil)
)
