package platform

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// idempotencyKey identifies one upstream call attempt within a tick, so an
// overlapping fan-out (a slow previous tick's goroutine still in flight
// when the next tick starts) never double-fires the same call.
type idempotencyKey struct {
	license string
	account string
	kind    string
}

type idempotencyEntry struct {
	expiresAt time.Time
}

// idempotencyCache is a bounded, TTL-checked cache of in-flight/recent call
// attempts, backed by hashicorp/golang-lru/v2 (already a teacher
// dependency, here given a second home: bounding the set of tracked keys so
// a large fleet can't grow this without limit).
type idempotencyCache struct {
	cache *lru.Cache[idempotencyKey, idempotencyEntry]
	ttl   time.Duration
}

func newIdempotencyCache(size int, ttl time.Duration) *idempotencyCache {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[idempotencyKey, idempotencyEntry](size)
	return &idempotencyCache{cache: c, ttl: ttl}
}

// claim reports whether the caller should proceed with the call: true if
// no unexpired entry exists for the key (and it records one), false if a
// call for this key is already considered in flight/recent.
func (c *idempotencyCache) claim(key idempotencyKey, now time.Time) bool {
	if entry, ok := c.cache.Get(key); ok && now.Before(entry.expiresAt) {
		return false
	}
	c.cache.Add(key, idempotencyEntry{expiresAt: now.Add(c.ttl)})
	return true
}

// release drops a key early, once its call has completed, so a legitimately
// repeated call (a later tick, well past the TTL window) isn't affected.
func (c *idempotencyCache) release(key idempotencyKey) {
	c.cache.Remove(key)
}
