// Package storage persists whole collections as JSON documents over a
// key-value backend. Every mutation rewrites the full document for its
// collection, which keeps the backends trivial at the cost of write
// amplification. That trade matches the data volumes of a single retail
// counter, not a multi-tenant service.
package storage

import (
	"errors"
	"sync"

	"facturacion/backend/internal/kv"
)

// Collections and counters share one namespace prefix so unrelated data in
// the same backend never collides with ours.
const keyPrefix = "facturacion_"

var (
	ErrNotFound    = errors.New("storage: record not found")
	ErrDuplicateID = errors.New("storage: duplicate record id")
)

// Record is anything a Collection can hold. RecordID must be stable for
// the lifetime of the record.
type Record interface {
	RecordID() string
}

// Store serializes every read and write across all collections with a
// single mutex. Concurrent callers are safe but never parallel; the one
// process owning the Store is the only writer the backend will see.
type Store struct {
	mu sync.Mutex
	kv kv.Store
}

func New(backend kv.Store) *Store {
	return &Store{kv: backend}
}
