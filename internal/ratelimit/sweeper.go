package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweepable is a limiter whose expired records can be dropped.
type Sweepable interface {
	Sweep(now time.Time) int
}

// Sweeper periodically evicts expired records so the in-memory map does not
// grow with every identifier ever seen.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	now      Clock
	log      *zap.Logger
}

// NewSweeper creates a sweeper for target running every interval.
func NewSweeper(target Sweepable, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 || s.target == nil {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	if n := s.target.Sweep(s.now()); n > 0 {
		s.log.Debug("rate_limit_records_swept",
			zap.Int("removed", n),
		)
	}
}
