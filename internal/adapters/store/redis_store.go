package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

// incrementScript runs the fixed-window step server-side so it is atomic per key.
// KEYS[1] = key, ARGV = now (ms), limit, window (ms). Returns {count, reset_ms, allowed}.
var incrementScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'count', 'reset')
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
if (not v[1]) or (not v[2]) or now > tonumber(v[2]) then
  local reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', KEYS[1], window + 1000)
  return {1, reset, 1}
end
local count = tonumber(v[1])
local reset = tonumber(v[2])
if count >= limit then
  return {count, reset, 0}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset, 1}
`)

// RedisStore shares rate-limit windows between instances through Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to redisURL (redis://host:port/db) and checks the connection
func NewRedisStore(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis rate limit store connected", zap.String("addr", opts.Addr))
	return NewRedisStoreFromClient(client, logger), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:", logger: logger}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get retrieves the record for id
func (s *RedisStore) Get(ctx context.Context, id string) (*ratelimit.Record, error) {
	vals, err := s.client.HMGet(ctx, s.key(id), "count", "reset").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit record: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, ratelimit.ErrNotFound
	}

	count, err := strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid count for %q: %w", id, err)
	}
	reset, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid reset for %q: %w", id, err)
	}
	return &ratelimit.Record{Count: count, ResetTime: time.UnixMilli(reset)}, nil
}

// Set stores a record that expires shortly after its window
func (s *RedisStore) Set(ctx context.Context, id string, rec ratelimit.Record) error {
	key := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "count", rec.Count, "reset", rec.ResetTime.UnixMilli())
	pipe.PExpireAt(ctx, key, rec.ResetTime.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store rate limit record: %w", err)
	}
	return nil
}

// Increment runs the fixed-window step as a Lua script
func (s *RedisStore) Increment(ctx context.Context, id string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.key(id)},
		now.UnixMilli(), limit, window.Milliseconds()).Result()
	if err != nil {
		return ratelimit.Record{}, false, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return ratelimit.Record{}, false, errors.New("unexpected rate limit script reply")
	}
	count, _ := vals[0].(int64)
	reset, _ := vals[1].(int64)
	allowed, _ := vals[2].(int64)

	return ratelimit.Record{Count: int(count), ResetTime: time.UnixMilli(reset)}, allowed == 1, nil
}

// Delete removes a record
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete rate limit record: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires records on its own
func (s *RedisStore) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
