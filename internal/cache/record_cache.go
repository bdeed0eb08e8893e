package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"twitter_api/internal/observability"
)

const DefaultTTL = 1 * time.Hour

// Store is the cache surface the services depend on. Get returns nil, nil on
// a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// RecordCache caches single entities as JSON in Redis.
type RecordCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewRecordCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *RecordCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RecordCache{client: client, ttl: ttl, metrics: metrics}
}

func (c *RecordCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.record(key, false)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.record(key, true)
	return val, nil
}

func (c *RecordCache) Set(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, c.ttl).Err()
}

func (c *RecordCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RecordCache) record(key string, hit bool) {
	if c.metrics == nil {
		return
	}
	keyType, _, _ := strings.Cut(key, ":")
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues(keyType).Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues(keyType).Inc()
	}
}

// Noop is used when Redis is not configured; every lookup misses.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, error)          { return nil, nil }
func (Noop) Set(ctx context.Context, key string, data interface{}) error { return nil }
func (Noop) Delete(ctx context.Context, keys ...string) error            { return nil }

func UserKey(userID string) string {
	return "user:" + userID
}

func TweetKey(tweetID string) string {
	return "tweet:" + tweetID
}
