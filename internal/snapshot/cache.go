// Package snapshot implements the content-addressed snapshot cache: a
// Map<TraceHash, Snapshot> keyed by trace prefix hash, enabling O(1)
// resumption of previously explored prefixes.
package snapshot

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"contractfuzz/internal/trace"
)

// Snapshot is an opaque serialized sandbox world state. Its shape is owned
// by the sandbox implementation; the cache only ever copies the reference.
type Snapshot = any

// Cache is the hash->snapshot map with trace-prefix lookup and insertion
// discipline. Insertion happens only after a non-reverting execution;
// lookup happens before execution so a hit can restore instead of
// re-executing.
//
// Eviction is optional: when Capacity > 0 an LRU bound is enforced and the
// cache evicts least-recently-used entries, otherwise the cache grows
// unbounded. Either way only changes performance, not correctness.
type Cache struct {
	mu       sync.Mutex
	unbound  map[trace.Hash]Snapshot
	bounded  *lru.Cache[trace.Hash, Snapshot]
	capacity int
}

// NewCache builds a Cache. capacity <= 0 means unbounded.
func NewCache(capacity int) *Cache {
	c := &Cache{capacity: capacity}
	if capacity > 0 {
		l, err := lru.New[trace.Hash, Snapshot](capacity)
		if err != nil {
			// Only returns an error for capacity <= 0, already excluded above.
			panic(err)
		}
		c.bounded = l
	} else {
		c.unbound = make(map[trace.Hash]Snapshot)
	}
	return c
}

// Get looks up the snapshot for h. The second return reports whether it was
// present (a cache hit).
func (c *Cache) Get(h trace.Hash) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		return c.bounded.Get(h)
	}
	s, ok := c.unbound[h]
	return s, ok
}

// Put stores a snapshot for h, overwriting any prior entry. It is only
// called after a non-reverting execution reaches a new trace prefix.
func (c *Cache) Put(h trace.Hash, s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		c.bounded.Add(h, s)
		return
	}
	c.unbound[h] = s
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.unbound)
}
