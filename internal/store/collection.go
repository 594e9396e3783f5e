// Package store holds the in-memory entity collections shared by every
// part of the client. Collections are ordered, keyed by id, and mutated
// only through Upsert/Replace/Remove; each mutation is a single rebuild
// under one mutex, so callers on any goroutine observe whole writes only.
// When two writers race, the last one wins per key; there is no version
// or timestamp comparison.
package store

import "sync"

// Collection is an ordered list of records deduplicated by key.
type Collection[T any] struct {
	mu    sync.Mutex
	items []T
	key   func(T) int64
}

// NewCollection returns an empty collection keyed by the given function.
func NewCollection[T any](key func(T) int64) *Collection[T] {
	return &Collection[T]{key: key}
}

// Upsert overwrites items whose key already exists, preserving their
// position, and appends the rest in input order. Idempotent.
func (c *Collection[T]) Upsert(items ...T) {
	c.upsert(items, false)
}

// UpsertFront behaves like Upsert but prepends new keys instead of
// appending them, so a just-saved record shows first in recency-ordered
// views. Existing keys are still overwritten in place.
func (c *Collection[T]) UpsertFront(items ...T) {
	c.upsert(items, true)
}

func (c *Collection[T]) upsert(items []T, toFront bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := make(map[int64]int, len(c.items))
	for i, existing := range c.items {
		index[c.key(existing)] = i
	}

	var fresh []T
	for _, item := range items {
		k := c.key(item)
		if i, ok := index[k]; ok {
			c.items[i] = item
			continue
		}
		// Later duplicates within the batch win.
		dup := false
		for j, f := range fresh {
			if c.key(f) == k {
				fresh[j] = item
				dup = true
				break
			}
		}
		if !dup {
			fresh = append(fresh, item)
		}
	}

	if len(fresh) == 0 {
		return
	}
	if toFront {
		c.items = append(fresh, c.items...)
		return
	}
	c.items = append(c.items, fresh...)
}

// Replace substitutes the item whose key equals oldKey, at the same index.
// Unlike Upsert it never inserts: with no match the collection is
// unchanged. This is the only legitimate way to resolve an optimistic
// placeholder whose temporary key differs from the server-assigned one.
func (c *Collection[T]) Replace(oldKey int64, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.key(c.items[i]) == oldKey {
			c.items[i] = item
		}
	}
}

// Remove filters out any item with the given key. Absent keys are a no-op.
func (c *Collection[T]) Remove(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, item := range c.items {
		if c.key(item) != key {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// Items returns a copy of the collection in order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the item with the given key, if present.
func (c *Collection[T]) Find(key int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		if c.key(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of items held.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
