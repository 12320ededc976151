// Package kvstore implements port.KeyValueStore: an in-memory store for tests
// and short-lived processes, and a file store that survives restarts.
package kvstore

import (
	"github.com/boddenberg/orders-dashboard-go/internal/infra/cache"
	"github.com/boddenberg/orders-dashboard-go/internal/port"
)

// Memory keeps values for the lifetime of the process.
type Memory struct {
	items port.Cache[string]
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{items: cache.New[string]()}
}

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.items.Set(key, value)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.items.Delete(key)
	return nil
}
