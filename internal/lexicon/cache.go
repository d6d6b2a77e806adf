package lexicon

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds the synonym memo.
const DefaultCacheSize = 2048

// SynonymCache is an LRU cache of synonym lists keyed by (term, category).
type SynonymCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	key   string
	value []string
}

// NewSynonymCache creates a cache holding at most capacity entries.
func NewSynonymCache(capacity int) *SynonymCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &SynonymCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(term string, cat Category) string {
	return term + "\x00" + string(cat)
}

// Get returns the cached synonyms for (term, cat). An empty cached list is still a hit.
func (c *SynonymCache) Get(term string, cat Category) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[cacheKey(term, cat)]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*cacheEntry).value, true
	}
	c.misses++
	return nil, false
}

// Set stores synonyms for (term, cat), evicting the least recently used entry when full.
func (c *SynonymCache) Set(term string, cat Category, value []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(term, cat)
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *SynonymCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *SynonymCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
