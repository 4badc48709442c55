package dashboard

import (
	"sync"
)

// Collection stores per-instance progress keyed strictly by instance id.
// Each fetch writes only its own entry, so results of concurrent fetches can
// never be attributed to another instance.
type Collection struct {
	entries map[string]InstanceProgress
	mu      sync.RWMutex
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		entries: make(map[string]InstanceProgress),
	}
}

// Set records the progress of one instance.
func (c *Collection) Set(p InstanceProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.InstanceID] = p
}

// Get returns the progress of one instance.
func (c *Collection) Get(instanceID string) (InstanceProgress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[instanceID]
	return p, ok
}

// Len returns the number of instances.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns a copy of every entry.
func (c *Collection) All() map[string]InstanceProgress {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]InstanceProgress, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
