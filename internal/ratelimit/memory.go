package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Record is the per-identifier counter for the current window.
type Record struct {
	Count   int
	ResetAt time.Time
}

// MemoryLimiter keeps one Record per identifier in process memory.
// Records are replaced once their window elapses and are only removed by Sweep.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*Record
	policy  Policy
	now     Clock
}

// NewMemoryLimiter creates an in-process limiter. A nil clock means time.Now.
func NewMemoryLimiter(policy Policy, clock Clock) *MemoryLimiter {
	if !policy.Valid() {
		policy = Policy{Limit: DefaultPageLimit, Window: DefaultWindow}
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryLimiter{
		records: make(map[string]*Record),
		policy:  policy,
		now:     clock,
	}
}

// Check implements Limiter. Rejected requests do not advance the counter.
func (m *MemoryLimiter) Check(_ context.Context, id string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.policy
	rec, ok := m.records[id]
	if !ok || !now.Before(rec.ResetAt) {
		rec = &Record{Count: 1, ResetAt: now.Add(p.Window)}
		m.records[id] = rec
		return m.grant(p, rec), nil
	}

	if rec.Count < p.Limit {
		rec.Count++
		return m.grant(p, rec), nil
	}

	return Decision{
		Allowed:    false,
		Limit:      p.Limit,
		Remaining:  0,
		Count:      rec.Count,
		ResetAt:    rec.ResetAt,
		RetryAfter: rec.ResetAt.Sub(now),
	}, nil
}

func (m *MemoryLimiter) grant(p Policy, rec *Record) Decision {
	return Decision{
		Allowed:   true,
		Limit:     p.Limit,
		Remaining: remaining(p.Limit, rec.Count),
		Count:     rec.Count,
		ResetAt:   rec.ResetAt,
	}
}

// Policy implements Limiter.
func (m *MemoryLimiter) Policy() Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// SetPolicy implements Limiter. Invalid policies are ignored.
func (m *MemoryLimiter) SetPolicy(p Policy) {
	if !p.Valid() {
		return
	}
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()
}

// Lookup returns a copy of the record for id, if any.
func (m *MemoryLimiter) Lookup(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked identifiers.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Sweep removes records whose window ended at or before now and returns how many were dropped.
func (m *MemoryLimiter) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rec := range m.records {
		if !now.Before(rec.ResetAt) {
			delete(m.records, id)
			n++
		}
	}
	return n
}
