// internal/locator/cache.go
package locator

import (
	"sync"
	"weak"

	"github.com/xkilldash9x/domdex/internal/dom"
)

// Cache memoizes computed strategies per node. Keys are weak pointers, so a
// cached entry never keeps a discarded render tree alive; entries whose node
// has been collected are simply never hit again. The cache must still be
// cleared wholesale whenever the document is replaced, because a stale entry
// for a live pointer would describe the old tree.
type Cache struct {
	mu      sync.Mutex
	entries map[weak.Pointer[dom.Node]][]Strategy
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[weak.Pointer[dom.Node]][]Strategy)}
}

// Get returns the cached strategies for the node, if any.
func (c *Cache) Get(n *dom.Node) ([]Strategy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[weak.Make(n)]
	return s, ok
}

// Put stores the strategies for the node.
func (c *Cache) Put(n *dom.Node, strategies []Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[weak.Make(n)] = strategies
}

// Clear drops every entry. Called on navigation and snapshot restore.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[weak.Pointer[dom.Node]][]Strategy)
}

// Len reports the number of live entries, for tests and debug output.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
