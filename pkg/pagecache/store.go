package pagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store handles page caching with a Redis backend. Expiry here is a
// property of the transport cache, configured by the caller; it is
// unrelated to the controller-scoped memoization cache, which never
// expires.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a page cache store. Entries expire after ttl.
func NewStore(redisClient *redis.Client, ttl time.Duration) (*Store, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive (got %s)", ttl)
	}
	return &Store{redis: redisClient, ttl: ttl}, nil
}

// Get retrieves a cached page by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			PageCacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		PageCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		PageCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	PageCacheHits.Inc()
	return &entry, nil
}

// Set stores a page with the store's TTL.
func (s *Store) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		PageCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		PageCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	PageCacheSize.Add(float64(len(data)))
	return nil
}

// Delete removes a cached page.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, redisKey(key)).Err(); err != nil {
		PageCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// redisKey namespaces page cache keys in Redis.
func redisKey(key string) string {
	return "pagecache:" + key
}
