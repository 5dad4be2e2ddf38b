package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

// DefaultMaxEntries bounds the in-process store when no size is configured
const DefaultMaxEntries = 50000

// MemoryStore is an in-process implementation of ratelimit.Store.
// Entries are bounded by an LRU; an evicted identifier simply starts a fresh window.
type MemoryStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, ratelimit.Record]
	logger  *zap.Logger
}

// NewMemoryStore creates a store holding at most maxEntries identifiers
func NewMemoryStore(logger *zap.Logger, maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cache, err := lru.NewWithEvict[string, ratelimit.Record](maxEntries, func(id string, _ ratelimit.Record) {
		logger.Debug("Rate limit entry evicted", zap.String("client_id", id))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU: %w", err)
	}
	return &MemoryStore{entries: cache, logger: logger}, nil
}

// Get retrieves the record for id
func (s *MemoryStore) Get(_ context.Context, id string) (*ratelimit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries.Peek(id)
	if !ok {
		return nil, ratelimit.ErrNotFound
	}
	return &rec, nil
}

// Set stores a record
func (s *MemoryStore) Set(_ context.Context, id string, rec ratelimit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Add(id, rec)
	return nil
}

// Increment applies one window step under the store lock
func (s *MemoryStore) Increment(_ context.Context, id string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.entries.Get(id)
	next, allowed, changed := ratelimit.Apply(rec, found, limit, window, now)
	if changed {
		s.entries.Add(id, next)
	}
	return next, allowed, nil
}

// Delete removes a record
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(id)
	return nil
}

// Cleanup removes records whose window has ended
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, id := range s.entries.Keys() {
		rec, ok := s.entries.Peek(id)
		if ok && now.After(rec.ResetTime) {
			s.entries.Remove(id)
			expired++
		}
	}

	s.logger.Debug("Cleaned up expired rate limit entries", zap.Int("expired_count", expired))
	return expired, nil
}

// Len reports the number of tracked identifiers
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
