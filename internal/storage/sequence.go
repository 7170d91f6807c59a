package storage

import (
	"context"
	"fmt"
	"strconv"
)

// Sequences hands out monotonic per-name counters. A counter starts at 0
// and the first draw returns 1. Get reads without advancing, so callers
// that need a provisional document number read Get, build the document
// with current+1, persist it, and only then call Next to commit the draw.
// A failure between those two calls reuses the number on the next draw;
// that two-call contract is deliberate and callers own the window.
type Sequences struct {
	store *Store
}

func NewSequences(store *Store) *Sequences {
	return &Sequences{store: store}
}

func (s *Sequences) key(name string) string {
	return keyPrefix + "seq_" + name
}

// current must be called with the store mutex held.
func (s *Sequences) current(ctx context.Context, name string) (int64, error) {
	raw, ok, err := s.store.kv.Get(ctx, s.key(name))
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", name, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sequence %s: corrupt counter %q: %w", name, raw, err)
	}
	return n, nil
}

// Get returns the current counter value, 0 if the name was never drawn.
func (s *Sequences) Get(ctx context.Context, name string) (int64, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.current(ctx, name)
}

// Next advances the counter and returns the drawn number.
func (s *Sequences) Next(ctx context.Context, name string) (int64, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	n, err := s.current(ctx, name)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.store.kv.Set(ctx, s.key(name), strconv.FormatInt(n, 10)); err != nil {
		return 0, fmt.Errorf("sequence %s: %w", name, err)
	}
	return n, nil
}
