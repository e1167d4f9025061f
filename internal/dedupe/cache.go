// Package dedupe provides the ingest worker's redelivery guard: a bounded
// set of recently written document IDs.
package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type record struct {
	key     string
	addedAt time.Time
}

// Cache is a capacity- and TTL-bounded set of string keys, safe for
// concurrent use. Lookup and insert are separate calls so a caller can leave
// a key unmarked when the work it guards failed.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	queue    *list.List // insertion order, oldest at the front
}

// New returns a cache holding at most capacity keys, each forgotten after ttl.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		queue:    list.New(),
	}
}

// Contains reports whether key was added inside the TTL window.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return false
	}

	if time.Since(el.Value.(record).addedAt) > c.ttl {
		c.queue.Remove(el)
		delete(c.index, key)
		return false
	}

	return true
}

// Add records key, moving it to the back of the eviction order if already
// present, then drops expired and over-capacity entries oldest first.
func (c *Cache) Add(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.queue.Remove(el)
	}
	c.index[key] = c.queue.PushBack(record{key: key, addedAt: now})

	cutoff := now.Add(-c.ttl)
	for c.queue.Len() > 0 {
		front := c.queue.Front()
		rec := front.Value.(record)
		if c.queue.Len() <= c.capacity && !rec.addedAt.Before(cutoff) {
			break
		}
		c.queue.Remove(front)
		delete(c.index, rec.key)
	}
}
