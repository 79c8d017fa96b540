package cmap

import (
	"container/list"
	"crypto/sha256"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a content-addressed CMap cache (Default returns the
// process-wide instance; Open builds one per Document), described by
// spec §5: a thread-safe interior-mutable map keyed by the hash of the
// raw CMap bytes, bounded by an optional LRU capacity. Parsing is
// deferred until first lookup (§9's "lazy CMap parsing"); concurrent
// first-lookups of the same bytes are collapsed through singleflight
// so only one goroutine ever parses a given CMap.
type Cache struct {
	mu       sync.Mutex
	capacity int // 0 means unbounded
	entries  map[[32]byte]*list.Element
	order    *list.List // front = most recently used
	group    singleflight.Group
}

type cacheEntry struct {
	key   [32]byte
	value *CMap
}

// NewCache builds a Cache. capacity <= 0 means no eviction.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  map[[32]byte]*list.Element{},
		order:    list.New(),
	}
}

// defaultCache is the shared instance used when a caller does not
// supply its own, matching §5's "opt-in, process-wide service".
var defaultCache = NewCache(256)

// Default returns the process-wide shared cache.
func Default() *Cache { return defaultCache }

// GetOrParse returns the CMap already cached for data's content hash,
// or parses it, caches it, and returns it. Concurrent calls with
// identical bytes share one parse.
func (c *Cache) GetOrParse(data []byte) (*CMap, error) {
	key := sha256.Sum256(data)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		cm := el.Value.(*cacheEntry).value
		c.mu.Unlock()
		return cm, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(key[:]), func() (interface{}, error) {
		return Parse(data)
	})
	if err != nil {
		return nil, err
	}
	cm := v.(*CMap)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).value, nil
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: cm})
	c.entries[key] = el
	c.evictIfNeeded()
	return cm, nil
}

func (c *Cache) evictIfNeeded() {
	if c.capacity <= 0 {
		return
	}
	for len(c.entries) > c.capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.order.Remove(back)
		delete(c.entries, back.Value.(*cacheEntry).key)
	}
}
