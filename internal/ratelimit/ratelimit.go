// Package ratelimit implements fixed-window admission counters keyed by
// client identifier. Limiters are swappable: a process-local map for a single
// replica, or a ulule/limiter store (Redis) when replicas must agree.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
)

// ErrInvalidPolicy is returned when a policy string cannot be parsed.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")

const (
	// DefaultWindow is the length of a counting window.
	DefaultWindow = time.Minute
	// DefaultPageLimit is the page-level gate quota per window.
	DefaultPageLimit = 100
	// DefaultContactLimit is the contact submission quota per window.
	DefaultContactLimit = 5
)

// Policy is a request quota over a fixed window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// String renders the policy in the "<limit>-<unit>" form accepted by ParsePolicy
// when the window is a whole second, minute, hour or day.
func (p Policy) String() string {
	switch p.Window {
	case time.Second:
		return fmt.Sprintf("%d-S", p.Limit)
	case time.Minute:
		return fmt.Sprintf("%d-M", p.Limit)
	case time.Hour:
		return fmt.Sprintf("%d-H", p.Limit)
	case 24 * time.Hour:
		return fmt.Sprintf("%d-D", p.Limit)
	}
	return fmt.Sprintf("%d/%s", p.Limit, p.Window)
}

// Valid reports whether the policy can admit anything at all.
func (p Policy) Valid() bool {
	return p.Limit > 0 && p.Window > 0
}

// ParsePolicy parses "100-M", "5-M", "10-S", "1000-H" style rates.
func ParsePolicy(formatted string) (Policy, error) {
	rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(formatted))
	if err != nil {
		return Policy{}, fmt.Errorf("%w %q: %v", ErrInvalidPolicy, formatted, err)
	}
	p := Policy{Limit: int(rate.Limit), Window: rate.Period}
	if !p.Valid() {
		return Policy{}, fmt.Errorf("%w %q: limit must be positive", ErrInvalidPolicy, formatted)
	}
	return p, nil
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Count      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, the unit of the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Limiter decides whether a client identifier may proceed.
type Limiter interface {
	// Check records one request for id and reports whether it is admitted.
	Check(ctx context.Context, id string) (Decision, error)
	// Policy returns the policy currently enforced.
	Policy() Policy
	// SetPolicy replaces the enforced policy; counters already running keep their windows.
	SetPolicy(p Policy)
}

// Clock returns the current time. Tests substitute a controllable one.
type Clock func() time.Time

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
