package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// StoreLimiter enforces a Policy on top of a ulule/limiter store. With the
// Redis store every replica shares the same counters.
type StoreLimiter struct {
	store limiter.Store
	now   Clock

	mu       sync.RWMutex
	policy   Policy
	instance *limiter.Limiter
}

// NewStoreLimiter wraps store with policy. A nil clock means time.Now.
func NewStoreLimiter(store limiter.Store, policy Policy, clock Clock) *StoreLimiter {
	if !policy.Valid() {
		policy = Policy{Limit: DefaultPageLimit, Window: DefaultWindow}
	}
	if clock == nil {
		clock = time.Now
	}
	s := &StoreLimiter{store: store, now: clock}
	s.SetPolicy(policy)
	return s
}

// NewRedisStoreLimiter builds a StoreLimiter on a Redis store whose keys start with prefix.
func NewRedisStoreLimiter(client *redis.Client, prefix string, policy Policy) (*StoreLimiter, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}
	return NewStoreLimiter(store, policy, nil), nil
}

// Check implements Limiter.
func (s *StoreLimiter) Check(ctx context.Context, id string) (Decision, error) {
	s.mu.RLock()
	instance := s.instance
	s.mu.RUnlock()

	lctx, err := instance.Get(ctx, id)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	limit := int(lctx.Limit)
	resetAt := time.Unix(lctx.Reset, 0)
	d := Decision{
		Allowed:   !lctx.Reached,
		Limit:     limit,
		Remaining: int(lctx.Remaining),
		Count:     limit - int(lctx.Remaining),
		ResetAt:   resetAt,
	}
	if lctx.Reached {
		d.Remaining = 0
		d.Count = limit
		d.RetryAfter = resetAt.Sub(s.now())
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d, nil
}

// Policy implements Limiter.
func (s *StoreLimiter) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy implements Limiter. The store is reused; only the limiter instance is rebuilt.
func (s *StoreLimiter) SetPolicy(p Policy) {
	if !p.Valid() {
		return
	}
	instance := limiter.New(s.store, limiter.Rate{
		Period: p.Window,
		Limit:  int64(p.Limit),
	})
	s.mu.Lock()
	s.policy = p
	s.instance = instance
	s.mu.Unlock()
}

// NewRedisClient parses redisURL, connects and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
