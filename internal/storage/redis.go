package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"flatwatch/pkg/urlutil"
)

// RedisStore tracks which listing URLs were recently processed, so
// repeated scraper runs do not re-crawl the same listings, and counts
// per-URL discovery failures for retry decisions.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MarkProcessed records a successful discovery run for a listing URL.
func (s *RedisStore) MarkProcessed(ctx context.Context, listingURL string, ttl time.Duration) error {
	return s.client.Set(ctx, "processed:"+urlutil.HashURL(listingURL), "1", ttl).Err()
}

// IsRecentlyProcessed reports whether a listing URL was processed
// within the TTL window.
func (s *RedisStore) IsRecentlyProcessed(ctx context.Context, listingURL string) (bool, error) {
	val, err := s.client.Exists(ctx, "processed:"+urlutil.HashURL(listingURL)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// IncrementFailureCount bumps the discovery failure counter for a
// listing URL. The key expires after a day so stale counters do not
// accumulate.
func (s *RedisStore) IncrementFailureCount(ctx context.Context, listingURL string) (int64, error) {
	key := "failures:" + urlutil.HashURL(listingURL)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	s.client.Expire(ctx, key, 24*time.Hour)
	return count, nil
}
