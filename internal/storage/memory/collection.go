package memory

import (
	"context"
	"sync"

	"dividend-hunter/internal/storage"
)

// Collection is an in-memory implementation of storage.Collection.
// Values are copied on the way in and out; WithClone extends the copy to
// slices inside T so callers never share backing arrays with the store.
type Collection[T any] struct {
	mu    sync.RWMutex
	key   func(T) string
	clone func(T) T
	data  map[string]T
}

// NewCollection creates a new in-memory collection keyed by key.
func NewCollection[T any](key func(T) string) *Collection[T] {
	return &Collection[T]{
		key:   key,
		clone: func(v T) T { return v },
		data:  make(map[string]T),
	}
}

// WithClone sets the deep-copy function applied on every read and write.
func (c *Collection[T]) WithClone(clone func(T) T) *Collection[T] {
	c.clone = clone
	return c
}

// Get retrieves an entity by primary key. Returns ErrNotFound if not exists.
func (c *Collection[T]) Get(_ context.Context, key string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, exists := c.data[key]
	if !exists {
		var zero T
		return zero, storage.ErrNotFound
	}
	return c.clone(v), nil
}

// GetAll retrieves every entity.
func (c *Collection[T]) GetAll(_ context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]T, 0, len(c.data))
	for _, v := range c.data {
		result = append(result, c.clone(v))
	}
	return result, nil
}

// Put upserts an entity by primary key.
func (c *Collection[T]) Put(_ context.Context, v T) error {
	k := c.key(v)
	if k == "" {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[k] = c.clone(v)
	return nil
}

// PutBulk upserts multiple entities atomically. Fails entire batch on any empty key.
func (c *Collection[T]) PutBulk(_ context.Context, vs []T) error {
	if len(vs) == 0 {
		return nil
	}

	// First pass: validate every key before touching the map
	keys := make([]string, len(vs))
	for i, v := range vs {
		k := c.key(v)
		if k == "" {
			return storage.ErrInvalidInput
		}
		keys[i] = k
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Second pass: write all
	for i, v := range vs {
		c.data[keys[i]] = c.clone(v)
	}
	return nil
}

// Delete removes an entity.
func (c *Collection[T]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// DeleteMany removes multiple entities atomically.
func (c *Collection[T]) DeleteMany(_ context.Context, keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// Clear removes every entity.
func (c *Collection[T]) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]T)
	return nil
}

// Count returns the number of stored entities.
func (c *Collection[T]) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data), nil
}
