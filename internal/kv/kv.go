// Package kv defines the host-provided key-value layer that backs every
// collection and sequence counter. Implementations only need to round-trip
// string values by string key; everything above (snapshots, locking,
// serialization) lives in the storage package.
package kv

import (
	"context"
	"sync"
)

type Store interface {
	// Get returns the value for key, a flag telling whether the key exists,
	// and any backend error.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is a non-durable Store used for tests and for running without any
// configured backend.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
