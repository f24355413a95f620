package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a keyed value passed to Replace.
type Entry[T any] struct {
	Key   string
	Value T
}

// TypedStore is a generic, concurrency-safe, in-memory key-value store that
// remembers insertion order. It tracks when data was last modified and
// whether it has ever been loaded.
type TypedStore[T any] struct {
	mu          sync.RWMutex
	items       map[string]T
	order       []string
	lastUpdated atomic.Int64 // UnixMilli timestamp of last modification
	loaded      atomic.Bool
}

// NewTypedStore creates a new, empty TypedStore.
func NewTypedStore[T any]() *TypedStore[T] {
	s := &TypedStore[T]{
		items: make(map[string]T),
	}
	s.lastUpdated.Store(time.Now().UnixMilli())
	return s
}

// Replace swaps the whole contents in one step. Readers see either the old
// or the new set, never a mix. A repeated key keeps its first position and
// its last value.
func (s *TypedStore[T]) Replace(entries []Entry[T]) {
	items := make(map[string]T, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := items[e.Key]; !ok {
			order = append(order, e.Key)
		}
		items[e.Key] = e.Value
	}

	s.mu.Lock()
	s.items = items
	s.order = order
	s.mu.Unlock()
	s.touch()
}

// LastUpdated returns the UnixMilli timestamp of the last modification.
func (s *TypedStore[T]) LastUpdated() int64 {
	return s.lastUpdated.Load()
}

// Loaded reports whether Replace has been called at least once.
// An empty but loaded store means "no data", not "still loading".
func (s *TypedStore[T]) Loaded() bool {
	return s.loaded.Load()
}

// Get retrieves a value by key. Returns the value and true if found,
// or the zero value and false if not.
func (s *TypedStore[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Len returns the number of items in the store.
func (s *TypedStore[T]) Len() int {
	s.mu.RLock()
	n := len(s.items)
	s.mu.RUnlock()
	return n
}

// Snapshot returns a shallow copy of all items. Mutations to the returned
// map do not affect the store.
func (s *TypedStore[T]) Snapshot() map[string]T {
	s.mu.RLock()
	cp := make(map[string]T, len(s.items))
	for k, v := range s.items {
		cp[k] = v
	}
	s.mu.RUnlock()
	return cp
}

// Values returns all values in insertion order.
func (s *TypedStore[T]) Values() []T {
	s.mu.RLock()
	vals := make([]T, 0, len(s.order))
	for _, k := range s.order {
		vals = append(vals, s.items[k])
	}
	s.mu.RUnlock()
	return vals
}

func (s *TypedStore[T]) touch() {
	s.lastUpdated.Store(time.Now().UnixMilli())
	s.loaded.Store(true)
}
