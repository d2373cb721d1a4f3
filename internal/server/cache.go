package server

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/aql/internal/querysql"
)

// queryCache is a bounded LRU of compiled queries keyed by ir.QueryKey.
// Concurrent misses for the same key share one compilation.
//
// Thread-safety: all methods are safe for concurrent use.
type queryCache struct {
	mu      sync.Mutex
	size    int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	group   singleflight.Group

	hits, misses int
}

type cacheEntry struct {
	key string
	res *querysql.Result
}

// newQueryCache creates a cache holding up to size results. A size of 0 or
// less disables caching; every call compiles.
func newQueryCache(size int) *queryCache {
	size = max(size, 0)
	return &queryCache{
		size:    size,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// get returns the cached result for key, or calls compile and caches a
// successful result. Errors are never cached.
func (c *queryCache) get(key string, compile func() (*querysql.Result, error)) (*querysql.Result, bool, error) {
	if c.size == 0 {
		res, err := compile()
		return res, false, err
	}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		c.mu.Unlock()
		return el.Value.(*cacheEntry).res, true, nil
	}
	c.misses++
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := compile()
		if err != nil {
			return nil, err
		}
		c.put(key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*querysql.Result), false, nil
}

func (c *queryCache) put(key string, res *querysql.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, res: res})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// stats returns the entry count and hit/miss counters.
func (c *queryCache) stats() (entries, hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len(), c.hits, c.misses
}
