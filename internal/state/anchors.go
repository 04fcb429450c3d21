package state

import "sync"

// Anchor is a rendered element addressable by a stable id, such as a table body or a toggle control.
type Anchor interface {
	AnchorID() string
}

// AnchorResolver looks anchors up in the current render tree.
type AnchorResolver interface {
	Resolve(id string) (Anchor, bool)
}

// AnchorResolverFunc adapts a function to [AnchorResolver].
type AnchorResolverFunc func(id string) (Anchor, bool)

func (f AnchorResolverFunc) Resolve(id string) (Anchor, bool) { return f(id) }

// ElementCache memoises successful anchor lookups. Misses are not cached, so an anchor that appears
// after a render is found on the next lookup.
type ElementCache struct {
	resolver AnchorResolver

	mu      sync.Mutex
	entries map[string]Anchor
	lookups int
}

// NewElementCache creates an [ElementCache] over resolver, which may be nil.
func NewElementCache(resolver AnchorResolver) *ElementCache {
	return &ElementCache{resolver: resolver, entries: make(map[string]Anchor)}
}

// Get returns the anchor for id, resolving it on first use.
func (c *ElementCache) Get(id string) (Anchor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.entries[id]; ok {
		return a, true
	}
	if c.resolver == nil {
		return nil, false
	}

	c.lookups++
	a, ok := c.resolver.Resolve(id)
	if !ok {
		return nil, false
	}
	c.entries[id] = a
	return a, true
}

// Clear drops every memoised anchor. Called whenever a full re-render replaces the tree.
func (c *ElementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of memoised anchors.
func (c *ElementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookups returns how many times the resolver was consulted.
func (c *ElementCache) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}
