// Package cache provides a simple thread-safe in-memory map.
// It backs the memory key-value store used when no session file is configured.
package cache

import "sync"

// InMemory is a thread-safe generic map. Entries live until deleted.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// New creates an empty cache.
func New[T any]() *InMemory[T] {
	return &InMemory[T]{items: make(map[string]T)}
}

// Get retrieves a value from the cache.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.items[key]
	return v, ok
}

// Set stores a value, replacing any previous one.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = value
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}
