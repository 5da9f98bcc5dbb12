package cache

import (
	"container/list"
	"regexp"
	"sync"
	"time"
)

// TagIndexPrefix prefixes the entries that hold the keys registered under a tag.
const TagIndexPrefix = "__tag__:"

// Store is the behavior read paths depend on. Cache is the process local
// implementation; a shared one can be swapped in behind the same interface.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, opts ...SetOption)
	Invalidate(key string) bool
	InvalidateByTag(tag string) int
	InvalidateByPattern(pattern string) int
	Clear()
}

// Entry is a stored value together with its bookkeeping.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
	TTL      time.Duration
	Version  uint64
}

func (e *Entry) expired(now time.Time) bool {
	if e.TTL < 0 {
		return false
	}
	return now.Sub(e.StoredAt) >= e.TTL
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries     int    `json:"entries"`
	Capacity    int    `json:"capacity"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// Cache is a bounded in-memory key/value store with lazy TTL expiry and tag
// based invalidation. When full it evicts the oldest inserted key; setting an
// existing key refreshes it in place without moving it.
type Cache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time
	observer   Observer

	entries map[string]*list.Element
	order   *list.List
	version uint64
	stats   Stats
}

var _ Store = (*Cache)(nil)

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		capacity:   DefaultCapacity,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		observer:   noopObserver{},
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the value stored under key. The boolean is false on a miss,
// including when the entry expired.
func (c *Cache) Get(key string) (any, bool) {
	entry, ok := c.Lookup(key)
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Lookup is Get returning the full entry, version included.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.Lock()
	entry, ok := c.live(key)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	var out Entry
	if ok {
		out = *entry
	}
	c.mu.Unlock()

	if ok {
		c.observer.CacheHit()
	} else {
		c.observer.CacheMiss()
	}
	return out, ok
}

// Set stores value under key and registers it under every tag.
func (c *Cache) Set(key string, value any, opts ...SetOption) {
	options := setOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	ttl := c.defaultTTL
	if options.hasTTL {
		ttl = options.ttl
	}

	c.mu.Lock()
	evicted := c.put(key, value, ttl)
	for _, tag := range options.tags {
		if tag == "" {
			continue
		}
		evicted += c.index(tag, key)
	}
	c.mu.Unlock()

	for i := 0; i < evicted; i++ {
		c.observer.CacheEviction()
	}
}

// Invalidate removes key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(key)
}

// InvalidateByTag removes every key registered under tag and the tag index
// itself. When the index already expired or was evicted nothing is removed.
func (c *Cache) InvalidateByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	indexKey := TagIndexPrefix + tag
	entry, ok := c.live(indexKey)
	if !ok {
		return 0
	}
	keys, _ := entry.Value.([]string)
	removed := 0
	for _, key := range keys {
		if c.remove(key) {
			removed++
		}
	}
	c.remove(indexKey)
	return removed
}

// InvalidateByPattern removes every key matching the regular expression.
// An invalid pattern removes nothing.
func (c *Cache) InvalidateByPattern(pattern string) int {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*Entry)
		if re.MatchString(entry.Key) {
			c.order.Remove(el)
			delete(c.entries, entry.Key)
			removed++
		}
		el = next
	}
	return removed
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, expired ones not yet collected included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.Entries = c.order.Len()
	out.Capacity = c.capacity
	return out
}

// live returns the entry for key, dropping it when expired. Callers hold mu.
func (c *Cache) live(key string) (*Entry, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*Entry)
	if entry.expired(c.now()) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.stats.Expirations++
		return nil, false
	}
	return entry, true
}

// put stores an entry and returns how many entries were evicted. Callers hold mu.
func (c *Cache) put(key string, value any, ttl time.Duration) int {
	c.version++
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*Entry)
		entry.Value = value
		entry.StoredAt = c.now()
		entry.TTL = ttl
		entry.Version = c.version
		return 0
	}

	evicted := 0
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*Entry).Key)
		c.stats.Evictions++
		evicted++
	}

	c.entries[key] = c.order.PushBack(&Entry{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
		TTL:      ttl,
		Version:  c.version,
	})
	return evicted
}

// index adds key to the tag index entry. Callers hold mu.
func (c *Cache) index(tag, key string) int {
	indexKey := TagIndexPrefix + tag
	var keys []string
	if entry, ok := c.live(indexKey); ok {
		existing, _ := entry.Value.([]string)
		for _, k := range existing {
			if k == key {
				entry.StoredAt = c.now()
				return 0
			}
		}
		keys = make([]string, 0, len(existing)+1)
		keys = append(keys, existing...)
	}
	keys = append(keys, key)
	return c.put(indexKey, keys, c.defaultTTL)
}

func (c *Cache) remove(key string) bool {
	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.entries, key)
	return true
}
