package dedup

import (
	"sync"
	"time"
)

// entry maps a signature to its payload and insertion time. An entry older
// than the configured expiry is logically absent: lookups treat it as a miss
// and evict it, and Sweep removes it regardless of read traffic.
type entry struct {
	value      interface{}
	insertedAt time.Time
}

// Cache is a time-expiring store of previously observed event signatures.
// All access is serialized; the scheduler, the fetcher and the status server
// share one instance.
type Cache struct {
	mu     sync.Mutex
	expiry time.Duration
	items  map[string]entry
}

// New creates a cache whose entries expire after the given duration
func New(expiry time.Duration) *Cache {
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return &Cache{
		expiry: expiry,
		items:  make(map[string]entry),
	}
}

// Set inserts or overwrites an entry, stamped with the current time
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, insertedAt: time.Now()}
}

// Get returns the value for key. An absent or expired entry is a miss;
// an expired entry is deleted as a side effect.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.insertedAt) >= c.expiry {
		delete(c.items, key)
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is present and unexpired, evicting it when expired
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Sweep deletes every entry older than the expiry and returns how many
// were removed. Intended to run once per scheduler cycle to bound memory
// independent of read traffic.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := time.Now()
	for key, e := range c.items {
		if now.Sub(e.insertedAt) >= c.expiry {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Size reports the current entry count, expired entries included until the
// next sweep or lookup retires them
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
