// Package cache provides a time-bounded key/value store used to avoid re-fetching
// measurement and spec data while several charts are built for the same filter.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays fresh when no TTL is configured
const DefaultTTL = 5 * time.Minute

// Clock returns the current time. Tests inject a fake clock to control expiry.
type Clock func() time.Time

// Key is the composite cache key (resource type, entity, date range or days).
// Callers must build keys consistently to get hits.
type Key struct {
	ResourceType string
	EntityID     string
	Window       string
}

// String renders the key as resource:entity:window
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ResourceType, k.EntityID, k.Window)
}

// Entry is a stored value with the time it was stored
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// Stats are cumulative counters since creation or the last InvalidateAll
type Stats struct {
	Entries     int     `json:"entries"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Expirations uint64  `json:"expirations"`
	TTLSeconds  float64 `json:"ttl_seconds"`
}

// TemporalCache is a read-through TTL store. It does not deduplicate concurrent
// misses: two callers missing the same key both go to the data source.
type TemporalCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]Entry[V]
	ttl     time.Duration
	now     Clock

	hits        uint64
	misses      uint64
	expirations uint64
}

// Option configures a TemporalCache
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock Clock
}

// WithTTL sets the freshness window; non-positive values keep the default
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New creates an empty cache
func New[K comparable, V any](opts ...Option) *TemporalCache[K, V] {
	o := options{ttl: DefaultTTL, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &TemporalCache[K, V]{
		entries: make(map[K]Entry[V]),
		ttl:     o.ttl,
		now:     o.clock,
	}
}

// Get returns the value stored under key if now - storedAt <= ttl.
// Stale entries are dropped on read.
func (c *TemporalCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return zero, false
	}

	if c.now().Sub(entry.StoredAt) > c.ttl {
		delete(c.entries, key)
		c.expirations++
		c.misses++
		return zero, false
	}

	c.hits++
	return entry.Value, true
}

// Put stores value under key with the current time
func (c *TemporalCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{Value: value, StoredAt: c.now()}
}

// Delete removes a key
func (c *TemporalCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc removes every key for which match returns true and reports how many
func (c *TemporalCache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateAll removes every entry and resets the counters
func (c *TemporalCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]Entry[V])
	c.hits, c.misses, c.expirations = 0, 0, 0
}

// Len returns the number of stored entries, fresh or not yet evicted
func (c *TemporalCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// TTL returns the freshness window
func (c *TemporalCache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Stats returns cache statistics
func (c *TemporalCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:     len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		Expirations: c.expirations,
		TTLSeconds:  c.ttl.Seconds(),
	}
}
