package llm

import (
	"container/list"
	"sync"
	"time"

	"github.com/Veraticus/cardwise/internal/model"
)

// cacheEntry is a cached parse result.
type cacheEntry struct {
	expiry time.Time
	key    string
	result model.LLMParsedSMS
}

// resultCache is a thread-safe LRU cache with per-entry expiry. A capacity of
// zero means unbounded and a TTL of zero means entries never expire.
type resultCache struct {
	entries  map[string]*list.Element
	order    *list.List
	now      func() time.Time
	ttl      time.Duration
	capacity int
	mu       sync.Mutex
}

func newResultCache(capacity int, ttl time.Duration) *resultCache {
	if capacity < 0 {
		capacity = 0
	}
	return &resultCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// cacheKey normalizes a (sender, message) pair.
func cacheKey(sender, message string) string {
	return sender + ":" + model.NormalizeMessage(message)
}

// get returns a live entry and marks it most recently used.
func (c *resultCache) get(key string) (model.LLMParsedSMS, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return model.LLMParsedSMS{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().After(entry.expiry) {
		c.removeLocked(elem)
		return model.LLMParsedSMS{}, false
	}

	c.order.MoveToFront(elem)
	return entry.result, true
}

// set stores a result, evicting the least recently used entry when full.
func (c *resultCache) set(key string, result model.LLMParsedSMS) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiry time.Time
	if c.ttl > 0 {
		expiry = c.now().Add(c.ttl)
	}

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.expiry = expiry
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: result, expiry: expiry})

	for c.capacity > 0 && c.order.Len() > c.capacity {
		c.removeLocked(c.order.Back())
	}
}

func (c *resultCache) removeLocked(elem *list.Element) {
	entry := c.order.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.key)
}

// clear removes all entries from the cache.
func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// size returns the number of entries, expired ones included until touched.
func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
