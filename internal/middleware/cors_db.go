package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/portfolio/internal/database"
	"github.com/benvon/portfolio/internal/models"
	"github.com/benvon/portfolio/internal/request"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultCORSMaxAge = 86400

// CORSReloader wraps rs/cors and periodically reloads the API CORS policy from the database.
type CORSReloader struct {
	repo     database.CorsConfigStore
	fallback string // FRONTEND_URL
	log      *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	current  *cors.Cors
	origins  []string
}

// NewCORSReloader creates a CORS middleware serving the fallback origins until
// the first Load. A nil repo serves the fallback origins only.
func NewCORSReloader(repo database.CorsConfigStore, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	if log == nil {
		log = zap.NewNop()
	}
	r := &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
	r.apply(models.SplitOrigins(r.fallback), false, defaultCORSMaxAge)
	return r
}

// Middleware returns a middleware applying the policy in force at request time.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			c.ServeHTTP(w, req, next.ServeHTTP)
		})
	}
}

// Start loads once, then reloads every interval until ctx is cancelled.
// Without a repository it returns immediately.
func (r *CORSReloader) Start(ctx context.Context) {
	if r.repo == nil {
		return
	}
	r.Load(ctx)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Load(ctx)
		}
	}
}

// AllowedOrigins returns the origins currently in force.
func (r *CORSReloader) AllowedOrigins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.origins...)
}

// Load reads the stored policy. Read errors and missing rows fall back to FRONTEND_URL.
func (r *CORSReloader) Load(ctx context.Context) {
	origins := models.SplitOrigins(r.fallback)
	allowCreds := false
	maxAge := defaultCORSMaxAge
	if r.repo != nil {
		cfg, err := r.repo.Get(ctx)
		switch {
		case err != nil:
			r.log.Warn("failed_to_load_cors_config_from_db_using_fallback",
				zap.Error(err),
				zap.Strings("fallback_origins", origins),
			)
		case cfg != nil:
			if err := cfg.Validate(); err != nil {
				r.log.Warn("invalid_cors_config_in_db_using_fallback",
					zap.Error(err),
					zap.Strings("fallback_origins", origins),
				)
				break
			}
			origins = cfg.Origins()
			allowCreds = cfg.AllowCredentials
			maxAge = cfg.MaxAge
		}
	}
	r.apply(origins, allowCreds, maxAge)
}

func (r *CORSReloader) apply(origins []string, allowCreds bool, maxAge int) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", request.RequestIDHeader},
		ExposedHeaders:   []string{request.RequestIDHeader, HeaderRateLimitLimit, HeaderRateLimitRemaining, HeaderRateLimitReset, HeaderRetryAfter},
	})

	r.mu.Lock()
	r.current = c
	r.origins = origins
	r.mu.Unlock()
}
