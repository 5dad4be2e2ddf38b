// Package ratelimit implements the fixed-window request counter keyed by client identifier.
//
// A window starts on the first request, lasts Window and admits MaxRequests requests.
// The window is not sliding: a client may send up to 2*MaxRequests around a boundary.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults used when the configuration leaves them unset
const (
	DefaultMaxRequests = 10
	DefaultWindow      = 15 * time.Minute
)

// ErrNotFound is returned by Store.Get for an identifier with no record
var ErrNotFound = errors.New("rate limit record not found")

// Record is the window state kept for one identifier
type Record struct {
	Count     int
	ResetTime time.Time
}

// Store persists one Record per identifier. Increment must be atomic per identifier:
// concurrent calls for the same key never lose an update.
type Store interface {
	// Get returns the stored record or ErrNotFound
	Get(ctx context.Context, id string) (*Record, error)

	// Set replaces the record for id
	Set(ctx context.Context, id string, rec Record) error

	// Increment applies one fixed-window step (see Apply) and returns the resulting record
	// and whether the request was admitted
	Increment(ctx context.Context, id string, limit int, window time.Duration, now time.Time) (Record, bool, error)

	// Delete removes the record for id
	Delete(ctx context.Context, id string) error

	// Cleanup removes records whose window ended before now and reports how many were dropped
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// Apply is the fixed-window transition shared by every store. changed reports
// whether next must be written back.
func Apply(rec Record, found bool, limit int, window time.Duration, now time.Time) (next Record, allowed, changed bool) {
	if !found || now.After(rec.ResetTime) {
		return Record{Count: 1, ResetTime: now.Add(window)}, true, true
	}
	if rec.Count >= limit {
		return rec, false, false
	}
	rec.Count++
	return rec, true, true
}

// Decision is what the gateway needs to admit or refuse a request
type Decision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
	// RetryAfter is the wait until ResetTime, rounded up to whole seconds; zero when allowed
	RetryAfter time.Duration
}

// Limiter applies a request quota on top of a Store
type Limiter struct {
	store       Store
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a limiter; non-positive values fall back to the defaults
func NewLimiter(store Store, maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{store: store, maxRequests: maxRequests, window: window, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Check counts one request for id against the configured quota
func (l *Limiter) Check(ctx context.Context, id string) (Decision, error) {
	return l.CheckLimit(ctx, id, l.maxRequests, l.window)
}

// CheckLimit counts one request for id against an explicit quota
func (l *Limiter) CheckLimit(ctx context.Context, id string, maxRequests int, window time.Duration) (Decision, error) {
	now := l.now()
	rec, allowed, err := l.store.Increment(ctx, id, maxRequests, window, now)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to update rate limit for %q: %w", id, err)
	}

	if !allowed {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  rec.ResetTime,
			RetryAfter: retryAfter(rec.ResetTime, now),
		}, nil
	}

	remaining := maxRequests - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, ResetTime: rec.ResetTime}, nil
}

// Store exposes the backing store, for the sweeper
func (l *Limiter) Store() Store { return l.store }

func retryAfter(reset, now time.Time) time.Duration {
	d := reset.Sub(now)
	if d <= 0 {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}
