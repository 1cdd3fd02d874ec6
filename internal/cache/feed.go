package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedCacheKey is the key for the global recent-pin cache. The feed is
	// the same newest-first pin list for every viewer, so one sorted set
	// serves all sessions.
	FeedCacheKey = "feed:pins"

	// FeedCacheCap is the maximum number of pins kept in the cache
	FeedCacheCap = 500

	// FeedCacheTTL is the TTL for the feed cache (7 days)
	FeedCacheTTL = 7 * 24 * time.Hour
)

// PinScore represents a pin with its timestamp score for caching
type PinScore struct {
	PinID     int64
	Timestamp int64 // Unix timestamp
}

// FeedCache defines the interface for feed cache operations.
// Using an interface enables testing with mocks and potential future backends.
type FeedCache interface {
	// AddPin adds a pin to the feed cache.
	// Uses pipeline: ZADD + ZREMRANGEBYRANK (maintain cap) + EXPIRE (refresh TTL)
	AddPin(ctx context.Context, pinID, timestamp int64) error

	// RemovePin removes a pin from the feed cache. Uses ZREM.
	RemovePin(ctx context.Context, pinID int64) error

	// GetRecent returns up to limit pin IDs, newest first.
	GetRecent(ctx context.Context, limit int) ([]int64, error)

	// Warm bulk-inserts pins into the cache.
	// Uses pipelined ZADD + EXPIRE for efficiency.
	Warm(ctx context.Context, pins []PinScore) error

	// Size returns the number of pins in the cache.
	Size(ctx context.Context) (int64, error)

	// Exists reports whether the cache key is present. Returns false on a
	// cold start or after TTL expiry; the feed service warms it then.
	Exists(ctx context.Context) (bool, error)
}

// RedisFeedCache implements FeedCache using a Redis Sorted Set keyed by
// pin creation time.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

// AddPin adds a pin using a pipeline: ZADD + trim to cap + refresh TTL.
func (c *RedisFeedCache) AddPin(ctx context.Context, pinID, timestamp int64) error {
	startTime := time.Now()

	pipe := c.client.Pipeline()

	pipe.ZAdd(ctx, FeedCacheKey, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(pinID, 10),
	})

	// ZREMRANGEBYRANK removes [start, stop] inclusive; rank 0 is the lowest
	// score (oldest). Keep the newest FeedCacheCap entries.
	pipe.ZRemRangeByRank(ctx, FeedCacheKey, 0, int64(-FeedCacheCap-1))

	pipe.Expire(ctx, FeedCacheKey, FeedCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[FeedCache] AddPin FAILED: pin=%d err=%v", pinID, err)
		return fmt.Errorf("add pin to feed: %w", err)
	}

	log.Printf("[FeedCache] AddPin OK: pin=%d timestamp=%d duration=%v",
		pinID, timestamp, time.Since(startTime))
	return nil
}

// RemovePin removes a pin from the feed cache.
func (c *RedisFeedCache) RemovePin(ctx context.Context, pinID int64) error {
	startTime := time.Now()
	member := strconv.FormatInt(pinID, 10)

	removed, err := c.client.ZRem(ctx, FeedCacheKey, member).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePin FAILED: pin=%d err=%v", pinID, err)
		return fmt.Errorf("remove pin from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePin OK: pin=%d removed=%d duration=%v",
		pinID, removed, time.Since(startTime))
	return nil
}

// GetRecent returns the newest pin IDs via ZREVRANGE.
func (c *RedisFeedCache) GetRecent(ctx context.Context, limit int) ([]int64, error) {
	startTime := time.Now()

	members, err := c.client.ZRevRange(ctx, FeedCacheKey, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[FeedCache] GetRecent FAILED: err=%v", err)
		return nil, fmt.Errorf("get recent pins: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, FeedCacheKey, FeedCacheTTL)

	pinIDs := make([]int64, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("[FeedCache] GetRecent parse error: member=%v err=%v", m, err)
			return nil, fmt.Errorf("parse pin id: %w", err)
		}
		pinIDs[i] = id
	}

	log.Printf("[FeedCache] GetRecent OK: returned=%d duration=%v",
		len(pinIDs), time.Since(startTime))
	return pinIDs, nil
}

// Warm bulk-inserts pins into the cache using a pipeline.
func (c *RedisFeedCache) Warm(ctx context.Context, pins []PinScore) error {
	if len(pins) == 0 {
		log.Printf("[FeedCache] Warm: pins=0 (nothing to warm)")
		return nil
	}

	startTime := time.Now()

	pipe := c.client.Pipeline()

	members := make([]redis.Z, len(pins))
	for i, p := range pins {
		members[i] = redis.Z{
			Score:  float64(p.Timestamp),
			Member: strconv.FormatInt(p.PinID, 10),
		}
	}
	pipe.ZAdd(ctx, FeedCacheKey, members...)

	// Maintain cap after bulk insert
	pipe.ZRemRangeByRank(ctx, FeedCacheKey, 0, int64(-FeedCacheCap-1))

	pipe.Expire(ctx, FeedCacheKey, FeedCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[FeedCache] Warm FAILED: pins=%d err=%v", len(pins), err)
		return fmt.Errorf("warm feed cache: %w", err)
	}

	log.Printf("[FeedCache] Warm OK: pins=%d duration=%v", len(pins), time.Since(startTime))
	return nil
}

// Size returns the number of pins in the cache.
func (c *RedisFeedCache) Size(ctx context.Context) (int64, error) {
	size, err := c.client.ZCard(ctx, FeedCacheKey).Result()
	if err != nil {
		log.Printf("[FeedCache] Size FAILED: err=%v", err)
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

// Exists checks if the feed cache key is present.
func (c *RedisFeedCache) Exists(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, FeedCacheKey).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return n > 0, nil
}
