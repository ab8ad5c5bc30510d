// internal/cache/lru.go
//
// Small LRU used by the view engine to keep parsed *template.Template sets
// keyed by page name.  Safe for concurrent use.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a least-recently-used cache with string keys.
type LRU[V any] struct {
	mu   sync.Mutex
	cap  int
	ll   *list.List
	dict map[string]*list.Element
}

type pair[V any] struct {
	key string
	val V
}

// New returns an LRU with the given capacity.  Panics on capacity < 1.
func New[V any](capacity int) *LRU[V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[V]{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[V]) Get(key string) (val V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[V]).val, true
	}
	return val, false
}

// Add inserts or replaces a value, evicting the oldest entry when full.
func (c *LRU[V]) Add(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(pair[V]{key, val})
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(pair[V]).key)
	}
}

// Purge drops every entry.  The view engine calls it when templates reload.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.dict)
}

// Len reports current size.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
