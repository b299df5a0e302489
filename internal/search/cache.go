package search

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults for Cache.
const (
	DefaultTTL        = 60 * time.Second
	DefaultMaxEntries = 100
	DefaultEvictBatch = 50
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_search_cache_hits_total",
		Help: "Citizen search cache hits.",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_search_cache_misses_total",
		Help: "Citizen search cache misses, including expired entries.",
	})
	cacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_search_cache_evictions_total",
		Help: "Entries removed by capacity sweeps or TTL expiry.",
	})
	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mdt_search_cache_entries",
		Help: "Current number of cached search results.",
	})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheEvictions, cacheEntries)
}

// Key identifies a cached search page. Only the semantic query, page and
// limit participate; build keys with NewKey so the query is normalized.
type Key struct {
	Query string
	Page  int
	Limit int
}

// NewKey returns the cache key for a search request.
func NewKey(q string, page, limit int) Key {
	return Key{Query: Normalize(q), Page: page, Limit: limit}
}

type entry struct {
	payload  []byte
	inserted time.Time
	seq      uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithCapacity sets the size bound and how many of the oldest entries a
// sweep removes once the bound would be exceeded.
func WithCapacity(maxEntries, evictBatch int) Option {
	return func(c *Cache) {
		if maxEntries > 0 {
			c.maxEntries = maxEntries
		}
		if evictBatch > 0 {
			c.evictBatch = evictBatch
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is a TTL cache of serialized search pages.
//
// Staleness is checked lazily on Get; there is no background sweeper. When a
// Put would grow the cache past its bound, the oldest entries by insertion
// are removed in a single batch. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	items      map[Key]entry
	seq        uint64
	ttl        time.Duration
	maxEntries int
	evictBatch int
	now        func() time.Time
}

// NewCache builds an empty cache with the default TTL and capacity.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		items:      make(map[Key]entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		evictBatch: DefaultEvictBatch,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the payload stored under k if it is younger than the TTL.
// An expired entry is deleted and reported as a miss.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[k]
	if !ok {
		cacheMisses.Inc()
		return nil, false
	}
	if c.now().Sub(e.inserted) >= c.ttl {
		delete(c.items, k)
		cacheEvictions.Inc()
		cacheEntries.Set(float64(len(c.items)))
		cacheMisses.Inc()
		return nil, false
	}
	cacheHits.Inc()
	return e.payload, true
}

// Put stores payload under k, replacing any previous entry.
func (c *Cache) Put(k Key, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[k]; !exists && len(c.items)+1 > c.maxEntries {
		c.evictOldestLocked()
	}
	c.seq++
	c.items[k] = entry{payload: payload, inserted: c.now(), seq: c.seq}
	cacheEntries.Set(float64(len(c.items)))
}

// Len reports the number of stored entries, including expired ones that
// have not been read yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge drops every entry.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = make(map[Key]entry)
	cacheEntries.Set(0)
	return n
}

func (c *Cache) evictOldestLocked() {
	type aged struct {
		k   Key
		seq uint64
	}
	all := make([]aged, 0, len(c.items))
	for k, e := range c.items {
		all = append(all, aged{k: k, seq: e.seq})
	}
	// Sequence, not timestamp: clock readings can tie.
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	n := c.evictBatch
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.items, a.k)
	}
	cacheEvictions.Add(float64(n))
}
