package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "process_cache_hits_total"},
		[]string{"cache"},
	)
	cacheMiss = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "process_cache_miss_total"},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMiss)
}

type entry[V any] struct {
	value     V
	updatedAt time.Time
}

// Cache is a process-scoped TTL cache. It is injected where short-lived reads
// are worth memoizing (campaign snapshots, import mapping keyword hits) and
// holds no package-global state beyond the prometheus counters above.
type Cache[V any] struct {
	name  string
	mu    sync.RWMutex
	items map[string]entry[V]
	ttl   time.Duration
	group singleflight.Group
}

// New builds a named cache. ttl <= 0 disables expiry.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:  name,
		items: make(map[string]entry[V]),
		ttl:   ttl,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || (c.ttl > 0 && time.Since(e.updatedAt) > c.ttl) {
		cacheMiss.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}

	cacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, updatedAt: time.Now()}
}

func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetOrLoad returns the cached value or runs loader once per key, collapsing
// concurrent loads through singleflight.
func (c *Cache[V]) GetOrLoad(key string, loader func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Sweep drops expired entries. Intended to be called opportunistically by
// owners with large key spaces.
func (c *Cache[V]) Sweep() {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if time.Since(e.updatedAt) > c.ttl {
			delete(c.items, k)
		}
	}
}
