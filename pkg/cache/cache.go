// Package cache provides a weight bounded LRU cache.
package cache

import (
	"container/list"
	"sync"
)

// Cache is a concurrency safe LRU cache bounded by the total weight of its
// entries rather than their count.
type Cache interface {
	// Insert adds or replaces the value stored at key and evicts least
	// recently used entries until the cache is within budget. An entry
	// heavier than the whole budget is not stored.
	Insert(key string, value interface{}, weight int)

	// Retrieve returns the value stored at key and marks it as recently used.
	Retrieve(key string) (interface{}, bool)

	// Remove deletes the entry at key, if any.
	Remove(key string)

	// Weight returns the current total weight of all entries.
	Weight() int

	Len() int
	Clear()
}

type entry struct {
	key    string
	value  interface{}
	weight int
}

type cache struct {
	mu      sync.Mutex
	budget  int
	weight  int
	entries *list.List
	lookup  map[string]*list.Element
}

// NewCache returns an empty cache with the provided weight budget.
func NewCache(budget int) Cache {
	return &cache{
		budget:  budget,
		entries: list.New(),
		lookup:  make(map[string]*list.Element),
	}
}

func (c *cache) Insert(key string, value interface{}, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.lookup[key]; ok {
		c.remove(elem)
	}
	if weight > c.budget {
		return
	}

	c.lookup[key] = c.entries.PushFront(&entry{key: key, value: value, weight: weight})
	c.weight += weight

	for c.weight > c.budget {
		c.remove(c.entries.Back())
	}
}

func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.lookup[key]
	if !ok {
		return nil, false
	}
	c.entries.MoveToFront(elem)
	return elem.Value.(*entry).value, true
}

func (c *cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.lookup[key]; ok {
		c.remove(elem)
	}
}

func (c *cache) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Init()
	c.lookup = make(map[string]*list.Element)
	c.weight = 0
}

func (c *cache) remove(elem *list.Element) {
	e := c.entries.Remove(elem).(*entry)
	delete(c.lookup, e.key)
	c.weight -= e.weight
}
