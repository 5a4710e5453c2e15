package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "100-M", want: Policy{Limit: 100, Window: time.Minute}},
		{in: "5-M", want: Policy{Limit: 5, Window: time.Minute}},
		{in: " 10-S ", want: Policy{Limit: 10, Window: time.Second}},
		{in: "1000-H", want: Policy{Limit: 1000, Window: time.Hour}},
		{in: "0-M", wantErr: true},
		{in: "fast", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPolicy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicyString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "100-M", Policy{Limit: 100, Window: time.Minute}.String())
	assert.Equal(t, "5-S", Policy{Limit: 5, Window: time.Second}.String())
	assert.Equal(t, "3-D", Policy{Limit: 3, Window: 24 * time.Hour}.String())
	assert.Equal(t, "7/1m30s", Policy{Limit: 7, Window: 90 * time.Second}.String())
}

func TestMemoryLimiter_RejectsAfterLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewMemoryLimiter(Policy{Limit: 100, Window: time.Minute}, clock.Now)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d, err := l.Check(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.Truef(t, d.Allowed, "request %d should be granted", i)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, 100-i, d.Remaining)
		clock.Advance(100 * time.Millisecond)
	}

	d, err := l.Check(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "101st request must be rejected")
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 100, d.Count, "rejections must not advance the counter")
	assert.LessOrEqual(t, d.RetryAfterSeconds(), 60)
	assert.Greater(t, d.RetryAfterSeconds(), 0)

	rec, ok := l.Lookup("203.0.113.7")
	require.True(t, ok)
	assert.Equal(t, 100, rec.Count)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewMemoryLimiter(Policy{Limit: 2, Window: time.Minute}, clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Check(ctx, "client")
		require.NoError(t, err)
	}
	d, _ := l.Check(ctx, "client")
	require.False(t, d.Allowed)

	clock.Advance(time.Minute)

	d, err := l.Check(ctx, "client")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestMemoryLimiter_IdentifiersAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(Policy{Limit: 1, Window: time.Minute}, newFakeClock().Now)
	ctx := context.Background()

	a, _ := l.Check(ctx, "a")
	b, _ := l.Check(ctx, "b")
	a2, _ := l.Check(ctx, "a")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, a2.Allowed)
	assert.Equal(t, 2, l.Len())
}

func TestMemoryLimiter_RetryAfterRoundsUp(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewMemoryLimiter(Policy{Limit: 1, Window: time.Minute}, clock.Now)
	ctx := context.Background()

	_, _ = l.Check(ctx, "x")
	clock.Advance(59*time.Second + 500*time.Millisecond)
	d, _ := l.Check(ctx, "x")

	require.False(t, d.Allowed)
	assert.Equal(t, 500*time.Millisecond, d.RetryAfter)
	assert.Equal(t, 1, d.RetryAfterSeconds())
}

func TestMemoryLimiter_SetPolicy(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(Policy{Limit: 1, Window: time.Minute}, newFakeClock().Now)
	ctx := context.Background()

	_, _ = l.Check(ctx, "x")
	d, _ := l.Check(ctx, "x")
	require.False(t, d.Allowed)

	l.SetPolicy(Policy{Limit: 3, Window: time.Minute})
	d, _ = l.Check(ctx, "x")
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)

	l.SetPolicy(Policy{})
	assert.Equal(t, 3, l.Policy().Limit, "invalid policy must be ignored")
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(Policy{Limit: 50, Window: time.Minute}, newFakeClock().Now)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Check(ctx, "shared")
			if err == nil && d.Allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, granted)
	rec, _ := l.Lookup("shared")
	assert.Equal(t, 50, rec.Count)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewMemoryLimiter(Policy{Limit: 5, Window: time.Minute}, clock.Now)
	ctx := context.Background()

	_, _ = l.Check(ctx, "old")
	clock.Advance(30 * time.Second)
	_, _ = l.Check(ctx, "new")
	clock.Advance(30 * time.Second)

	removed := l.Sweep(clock.Now())
	assert.Equal(t, 1, removed)
	_, ok := l.Lookup("old")
	assert.False(t, ok)
	_, ok = l.Lookup("new")
	assert.True(t, ok)
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	t.Parallel()

	l := NewMemoryLimiter(Policy{Limit: 5, Window: time.Millisecond}, nil)
	_, _ = l.Check(context.Background(), "x")

	s := NewSweeper(l, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStoreLimiter_MemoryStore(t *testing.T) {
	t.Parallel()

	l := NewStoreLimiter(memory.NewStore(), Policy{Limit: 5, Window: time.Minute}, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Check(ctx, "198.51.100.1")
		require.NoError(t, err)
		require.Truef(t, d.Allowed, "request %d should be granted", i)
		assert.Equal(t, 5-i, d.Remaining)
		assert.Equal(t, i, d.Count)
	}

	d, err := l.Check(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.LessOrEqual(t, d.RetryAfterSeconds(), 60)

	other, err := l.Check(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestStoreLimiter_SetPolicy(t *testing.T) {
	t.Parallel()

	l := NewStoreLimiter(memory.NewStore(), Policy{Limit: 1, Window: time.Minute}, nil)
	l.SetPolicy(Policy{Limit: 10, Window: time.Minute})
	assert.Equal(t, Policy{Limit: 10, Window: time.Minute}, l.Policy())

	d, err := l.Check(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Limit)
}

func TestLimiterImplementations(t *testing.T) {
	t.Parallel()

	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*StoreLimiter)(nil)
	var _ Sweepable = (*MemoryLimiter)(nil)
}

func ExampleParsePolicy() {
	p, _ := ParsePolicy("100-M")
	fmt.Println(p.Limit, p.Window)
	// Output: 100 1m0s
}
