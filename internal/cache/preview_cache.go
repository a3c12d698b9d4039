package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

const keyPrefix = "closures:preview:"

// PreviewCache is an optional Redis read/write-through cache for
// generated previews. Preview generation is pure, so a result keyed by
// range, filters and the record set stays valid until the records
// change; a Flush on every mutation keeps the cache tight anyway.
type PreviewCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPreviewCache wraps a Redis client. A nil client or non-positive
// TTL disables the cache; every method degrades to a no-op.
func NewPreviewCache(client *redis.Client, ttl time.Duration) *PreviewCache {
	return &PreviewCache{redis: client, ttl: ttl}
}

// Enabled reports whether lookups can hit Redis.
func (c *PreviewCache) Enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Key derives the cache key from the query window, the serialized
// filter and the record set.
func (c *PreviewCache) Key(rangeStart, rangeEnd time.Time, filter string, records []*model.ExceptionRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|", rangeStart.UnixNano(), rangeEnd.UnixNano(), filter)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		h.Write(data)
		h.Write([]byte{0})
	}
	return keyPrefix + fmt.Sprintf("%x", h.Sum(nil))
}

// Get loads a cached preview into out, reporting whether it was found.
func (c *PreviewCache) Get(ctx context.Context, key string, out any) bool {
	if !c.Enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

// Set stores a preview under key. Failures are ignored; the cache is
// best effort.
func (c *PreviewCache) Set(ctx context.Context, key string, val any) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// Flush drops every cached preview. Called on exception mutations.
func (c *PreviewCache) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	iter := c.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.redis.Del(ctx, iter.Val()).Err()
	}
}
