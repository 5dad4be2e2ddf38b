package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/store"
	"github.com/mikey/intake-guard/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, max int, window time.Duration) (*ratelimit.Limiter, *fakeClock) {
	t.Helper()
	s, err := store.NewMemoryStore(zap.NewNop(), 100)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return ratelimit.NewLimiter(s, max, window, ratelimit.WithClock(clock.Now)), clock
}

func TestEleventhRequestIsDenied(t *testing.T) {
	l, _ := newLimiter(t, 10, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := l.Check(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 10-i, d.Remaining)
	}

	d, err := l.Check(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 15*time.Minute, d.RetryAfter)

	// another identifier has its own window
	d, err = l.Check(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestWindowResets(t *testing.T) {
	l, clock := newLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Check(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	clock.Advance(30*time.Second + 200*time.Millisecond)
	d, err := l.Check(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	// still inside the window at the exact reset instant
	clock.Advance(29*time.Second + 800*time.Millisecond)
	d, err = l.Check(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	clock.Advance(time.Millisecond)
	d, err = l.Check(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestDeniedRequestsDoNotExtendWindow(t *testing.T) {
	l, clock := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	first, err := l.Check(ctx, "a")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		clock.Advance(5 * time.Second)
		d, err := l.Check(ctx, "a")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, first.ResetTime, d.ResetTime)
	}

	rec, err := l.Store().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count)
}

func TestCheckLimitOverridesQuota(t *testing.T) {
	l, _ := newLimiter(t, 10, time.Minute)
	ctx := context.Background()

	d, err := l.CheckLimit(ctx, "a", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.CheckLimit(ctx, "a", 1, time.Second)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
}

func TestNonPositiveSettingsUseDefaults(t *testing.T) {
	l, _ := newLimiter(t, 0, 0)
	ctx := context.Background()

	var d ratelimit.Decision
	var err error
	for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
		d, err = l.Check(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err = l.Check(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ratelimit.DefaultWindow, d.RetryAfter)
}

func TestConcurrentChecksNeverOverAdmit(t *testing.T) {
	l, _ := newLimiter(t, 10, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Check(ctx, "shared")
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), admitted.Load())
}

type failingStore struct{ ratelimit.Store }

func (failingStore) Increment(context.Context, string, int, time.Duration, time.Time) (ratelimit.Record, bool, error) {
	return ratelimit.Record{}, false, errors.New("connection refused")
}

func TestStoreErrorsAreReturned(t *testing.T) {
	l := ratelimit.NewLimiter(failingStore{}, 1, time.Minute)
	_, err := l.Check(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestApply(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	next, allowed, changed := ratelimit.Apply(ratelimit.Record{}, false, 3, time.Minute, now)
	assert.True(t, allowed)
	assert.True(t, changed)
	assert.Equal(t, 1, next.Count)
	assert.Equal(t, now.Add(time.Minute), next.ResetTime)

	full := ratelimit.Record{Count: 3, ResetTime: now.Add(time.Second)}
	next, allowed, changed = ratelimit.Apply(full, true, 3, time.Minute, now)
	assert.False(t, allowed)
	assert.False(t, changed)
	assert.Equal(t, full, next)

	next, allowed, _ = ratelimit.Apply(full, true, 3, time.Minute, now.Add(2*time.Second))
	assert.True(t, allowed)
	assert.Equal(t, 1, next.Count)
}
