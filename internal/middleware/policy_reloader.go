package middleware

import (
	"context"
	"time"

	"github.com/benvon/portfolio/internal/database"
	"github.com/benvon/portfolio/internal/models"
	"github.com/benvon/portfolio/internal/ratelimit"
	"go.uber.org/zap"
)

// PolicyTarget binds a rate limit config key to the live limiter it controls.
type PolicyTarget struct {
	Key     string
	Limiter ratelimit.Limiter
	Default ratelimit.Policy
}

// PolicyReloader periodically reloads gate policies from the database and
// applies them to running limiters. Counters survive a reload.
type PolicyReloader struct {
	repo     database.RatelimitConfigStore
	targets  []PolicyTarget
	log      *zap.Logger
	interval time.Duration
}

// NewPolicyReloader creates a reloader for targets.
func NewPolicyReloader(repo database.RatelimitConfigStore, log *zap.Logger, reloadInterval time.Duration, targets ...PolicyTarget) *PolicyReloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &PolicyReloader{
		repo:     repo,
		targets:  targets,
		log:      log,
		interval: reloadInterval,
	}
}

// Start loads once, then reloads every interval until ctx is cancelled.
func (r *PolicyReloader) Start(ctx context.Context) {
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

// Load applies the stored policy of every target. A missing row is seeded
// with the target default; unreadable or unparsable rows keep the policy in force.
func (r *PolicyReloader) Load(ctx context.Context) {
	for _, t := range r.targets {
		r.loadTarget(ctx, t)
	}
}

func (r *PolicyReloader) loadTarget(ctx context.Context, t PolicyTarget) {
	cfg, err := r.repo.Get(ctx, t.Key)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_from_db_keeping_current",
			zap.Error(err),
			zap.String("config_key", t.Key),
			zap.String("current_rate", t.Limiter.Policy().String()),
		)
		return
	}

	if cfg == nil || cfg.Rate == "" {
		if err := r.repo.Set(ctx, &models.RatelimitConfig{ConfigKey: t.Key, Rate: t.Default.String()}); err != nil {
			r.log.Error("failed_to_save_default_ratelimit_config",
				zap.Error(err),
				zap.String("config_key", t.Key),
				zap.String("default_rate", t.Default.String()),
			)
		}
		r.apply(t, t.Default)
		return
	}

	policy, err := ratelimit.ParsePolicy(cfg.Rate)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_keeping_current",
			zap.Error(err),
			zap.String("config_key", t.Key),
			zap.String("rate_str", cfg.Rate),
		)
		return
	}
	r.apply(t, policy)
}

func (r *PolicyReloader) apply(t PolicyTarget, p ratelimit.Policy) {
	if t.Limiter.Policy() == p {
		return
	}
	t.Limiter.SetPolicy(p)
	r.log.Info("rate_limit_policy_updated",
		zap.String("config_key", t.Key),
		zap.String("rate", p.String()),
	)
}
