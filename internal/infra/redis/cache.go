package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/mailsift/internal/core/domain"
)

// TTL policy: expiry is derived from the classification outcome, not a
// single constant. Low-value content changes rarely; high-priority or
// actionable results go stale fast.
const (
	TTLLong     = 24 * time.Hour
	TTLShort    = 30 * time.Minute
	TTLWork     = 1 * time.Hour
	TTLStandard = 2 * time.Hour
)

// TTLFor returns the cache TTL for an accepted result. The same policy
// applies whether the result came from a provider or the rule fallback.
func TTLFor(r *domain.Result) time.Duration {
	switch r.Category {
	case domain.CategoryNewsletter, domain.CategoryPromotional, domain.CategorySpam:
		return TTLLong
	}
	if r.Priority == domain.PriorityHigh || r.ActionRequired {
		return TTLShort
	}
	if r.Category == domain.CategoryWork {
		return TTLWork
	}
	return TTLStandard
}

// ResultCache implements the cache tier over Redis. Entries are JSON-encoded
// results keyed by item id; the stored Source field is preserved so the
// cache stays transparent.
type ResultCache struct {
	rdb *redis.Client
}

// NewResultCache creates a Redis-backed result cache.
func NewResultCache(client *Client) *ResultCache {
	return &ResultCache{rdb: client.rdb}
}

func cacheKey(itemID string) string {
	return fmt.Sprintf("classification:%s", itemID)
}

// Get retrieves a cached result. found=false on miss or expiry.
func (c *ResultCache) Get(ctx context.Context, itemID string) (*domain.Result, bool, error) {
	data, err := c.rdb.Get(ctx, cacheKey(itemID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		// Corrupt entry, drop it so the chain re-resolves.
		c.rdb.Del(ctx, cacheKey(itemID))
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores a result with the given TTL.
func (c *ResultCache) Set(ctx context.Context, itemID string, result *domain.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(itemID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes the entry for an item.
func (c *ResultCache) Delete(ctx context.Context, itemID string) error {
	if err := c.rdb.Del(ctx, cacheKey(itemID)).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// DeleteBySource removes every entry whose stored Source matches. Used when
// a provider is toggled so only its results are re-evaluated, not the whole
// cache.
func (c *ResultCache) DeleteBySource(ctx context.Context, source string) (int, error) {
	var deleted int
	iter := c.rdb.Scan(ctx, 0, cacheKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var result domain.Result
		if err := json.Unmarshal(data, &result); err != nil {
			continue
		}
		if result.Source == source {
			if err := c.rdb.Del(ctx, key).Err(); err == nil {
				deleted++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan failed: %w", err)
	}
	return deleted, nil
}

// Flush removes all classification entries.
func (c *ResultCache) Flush(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, cacheKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache flush failed: %w", err)
		}
	}
	return iter.Err()
}

// Ping checks connectivity for health reporting.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
