package dedupe

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type entry struct {
	key string
	seq uint64
}

// Cache remembers recently ingested record IDs for ttl, holding at most
// capacity of them. The oldest IDs are forgotten first.
type Cache struct {
	mu       sync.Mutex
	seen     *gocache.Cache
	order    []entry
	seq      uint64
	capacity int
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		seen:     gocache.New(ttl, 2*ttl),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
	}
}

// IsSeen reports whether id was marked inside the ttl window.
func (c *Cache) IsSeen(id string) bool {
	_, ok := c.seen.Get(id)
	return ok
}

// MarkSeen records id as ingested.
func (c *Cache) MarkSeen(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.seen.Set(id, c.seq, gocache.DefaultExpiration)
	c.order = append(c.order, entry{key: id, seq: c.seq})

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		// A later MarkSeen of the same id owns the live entry.
		if v, ok := c.seen.Get(oldest.key); ok && v.(uint64) == oldest.seq {
			c.seen.Delete(oldest.key)
		}
	}
}

// Len returns how many IDs are currently remembered.
func (c *Cache) Len() int {
	return c.seen.ItemCount()
}
