package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// entry is the stored envelope: the cached payload plus its write time.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

// ResponseCache is a namespaced TTL cache for JSON API responses.
//
// Each instance owns the keys under its prefix, so several logical
// caches with different TTLs can share one Store. Expiry is lazy: an
// expired entry is deleted the first time it is read, or during an
// explicit ClearExpired sweep. A corrupt entry is indistinguishable from
// a miss — the caller always has a network fallback, so treating bad
// data as absent is always safe.
type ResponseCache struct {
	store  Store
	prefix string
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Entry
}

// New creates a cache over store. prefix namespaces this instance's
// keys; ttl is fixed for the cache's lifetime.
func New(store Store, prefix string, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store:  store,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		log:    logrus.WithField("component", "cache").WithField("prefix", prefix),
	}
}

// TTL returns the cache's fixed time-to-live.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached payload for key, or ok=false on a miss. An
// expired or unparseable entry is deleted and reported as a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	stored := c.prefix + key

	raw, ok, err := c.store.Get(ctx, stored)
	if err != nil {
		c.log.WithError(err).Warn("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.WithField("key", key).Warn("dropping corrupt cache entry")
		c.delete(ctx, stored)
		return nil, false
	}

	if c.expired(e) {
		c.delete(ctx, stored)
		return nil, false
	}
	return e.Data, true
}

// Set stores payload under key with the current timestamp, overwriting
// any existing entry. Storage failures are logged and swallowed — the
// cache is an optimization, never a correctness dependency.
func (c *ResponseCache) Set(ctx context.Context, key string, payload json.RawMessage) {
	e := entry{Data: payload, Timestamp: c.now().UnixMilli()}

	raw, err := json.Marshal(e)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := c.store.Set(ctx, c.prefix+key, raw); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// Clear removes every entry owned by this cache instance.
func (c *ResponseCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ClearExpired sweeps all owned entries and removes those past TTL.
// Entries that fail to parse are removed as well.
func (c *ResponseCache) ClearExpired(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		raw, ok, err := c.store.Get(ctx, k)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil || c.expired(e) {
			c.delete(ctx, k)
			removed++
		}
	}
	return removed, nil
}

func (c *ResponseCache) expired(e entry) bool {
	storedAt := time.UnixMilli(e.Timestamp)
	return c.now().Sub(storedAt) >= c.ttl
}

func (c *ResponseCache) delete(ctx context.Context, storedKey string) {
	if err := c.store.Delete(ctx, storedKey); err != nil {
		c.log.WithError(err).Warn("cache delete failed")
	}
}
