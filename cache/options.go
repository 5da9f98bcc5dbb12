package cache

import "time"

const (
	// DefaultCapacity bounds the number of live entries, tag indexes included.
	DefaultCapacity = 1000
	// DefaultTTL applies to entries stored without WithTTL.
	DefaultTTL = 5 * time.Minute
)

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the maximum number of entries. Values below one are ignored.
func WithCapacity(capacity int) Option {
	return func(c *Cache) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithDefaultTTL sets the TTL used when Set is called without WithTTL.
// A negative value stores entries without expiry.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.defaultTTL = ttl
	}
}

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver receives hit, miss and eviction notifications.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = normalizeObserver(o)
	}
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl    time.Duration
	hasTTL bool
	tags   []string
}

// WithTTL sets the entry lifetime. Zero expires the entry on the next read,
// a negative value never expires it.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// WithTags registers the key under each tag for InvalidateByTag.
func WithTags(tags ...string) SetOption {
	return func(o *setOptions) {
		o.tags = append(o.tags, tags...)
	}
}

// Observer is notified of cache activity. Implementations must be cheap
// and must not call back into the cache.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheEviction()
}

type noopObserver struct{}

func (noopObserver) CacheHit() {}
func (noopObserver) CacheMiss() {}
func (noopObserver) CacheEviction() {}

func normalizeObserver(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}
