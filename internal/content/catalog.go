package content

import "sync"

// catalogEntry is what the watcher may know about a live record: a blank
// prototype to spawn shadows from, the file to reload and the generation of
// the record the prototype was taken from.
type catalogEntry struct {
	prototype Resource
	path      string
	gen       uint64
}

// catalog mirrors the registry's key set for the watcher goroutine. The
// registry map itself is never read off the owning goroutine.
type catalog struct {
	mu      sync.RWMutex
	entries map[Key]catalogEntry
}

func newCatalog() *catalog {
	return &catalog{entries: make(map[Key]catalogEntry)}
}

func (c *catalog) put(key Key, prototype Resource, path string, gen uint64) {
	c.mu.Lock()
	c.entries[key] = catalogEntry{prototype: prototype, path: path, gen: gen}
	c.mu.Unlock()
}

func (c *catalog) remove(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *catalog) get(key Key) (catalogEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	return e, ok
}

func (c *catalog) clear() {
	c.mu.Lock()
	c.entries = make(map[Key]catalogEntry)
	c.mu.Unlock()
}

func (c *catalog) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
