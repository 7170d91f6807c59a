package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one JSON document in the Store. All
// methods decode fresh copies from the stored document, so values handed
// back to callers never alias each other; mutating a returned record has
// no effect until it is passed back through Replace.
type Collection[T Record] struct {
	store *Store
	name  string
}

func NewCollection[T Record](store *Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) key() string {
	return keyPrefix + c.name
}

// load must be called with the store mutex held.
func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.kv.Get(ctx, c.key())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}
	if !ok {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return records, nil
}

// save must be called with the store mutex held.
func (c *Collection[T]) save(ctx context.Context, records []T) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.store.kv.Set(ctx, c.key(), string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}
	return nil
}

// GetAll returns every record in insertion order.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.load(ctx)
}

func (c *Collection[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, r := range records {
		if r.RecordID() == id {
			return r, nil
		}
	}
	return zero, ErrNotFound
}

// Find returns the records matching the predicate, preserving order.
func (c *Collection[T]) Find(ctx context.Context, match func(T) bool) ([]T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindOne returns the first record matching the predicate or ErrNotFound.
func (c *Collection[T]) FindOne(ctx context.Context, match func(T) bool) (T, error) {
	var zero T
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, r := range records {
		if match(r) {
			return r, nil
		}
	}
	return zero, ErrNotFound
}

// Count reports how many records match the predicate, or all records when
// no predicate is given.
func (c *Collection[T]) Count(ctx context.Context, match ...func(T) bool) (int, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	if len(match) == 0 {
		return len(records), nil
	}
	n := 0
	for _, r := range records {
		if match[0](r) {
			n++
		}
	}
	return n, nil
}

// Create appends the record. The record's id must not already be present.
func (c *Collection[T]) Create(ctx context.Context, record T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return err
	}
	id := record.RecordID()
	for _, r := range records {
		if r.RecordID() == id {
			return fmt.Errorf("%s %q: %w", c.name, id, ErrDuplicateID)
		}
	}
	return c.save(ctx, append(records, record))
}

// Replace swaps the record stored under id for the given one, keeping its
// position. Changing the id is allowed as long as the new id is free.
func (c *Collection[T]) Replace(ctx context.Context, id string, record T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return err
	}
	at := -1
	for i, r := range records {
		rid := r.RecordID()
		if rid == id {
			at = i
			continue
		}
		if rid == record.RecordID() {
			return fmt.Errorf("%s %q: %w", c.name, record.RecordID(), ErrDuplicateID)
		}
	}
	if at < 0 {
		return fmt.Errorf("%s %q: %w", c.name, id, ErrNotFound)
	}
	records[at] = record
	return c.save(ctx, records)
}

// Remove deletes the record stored under id. Removing an absent id is not
// an error; the bool reports whether anything was deleted.
func (c *Collection[T]) Remove(ctx context.Context, id string) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	at := -1
	for i, r := range records {
		if r.RecordID() == id {
			at = i
			break
		}
	}
	if at < 0 {
		return false, nil
	}
	if err := c.save(ctx, append(records[:at], records[at+1:]...)); err != nil {
		return false, err
	}
	return true, nil
}
