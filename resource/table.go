package resource

import (
	"sync"
)

// Table is a handle table backed by a Store.
type Table[T any] struct {
	store  Store[T]
	mu     sync.RWMutex
	closed bool
}

// NewTable creates a new table with in-memory slot storage.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		store: newSlotStore[T](),
	}
}

// Insert adds a value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return InvalidHandle, ErrClosed
	}
	return t.store.Create(value)
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(handle Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.Get(handle)
}

// Take detaches a value and returns (value, true) if found.
// The handle is invalid afterwards and its slot may be reused.
func (t *Table[T]) Take(handle Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Release(handle)
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.Len()
}

// Each iterates over live values in slot order until fn returns false.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.store.Each(fn)
}

// Handles returns a snapshot of live handles in slot order.
func (t *Table[T]) Handles() []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()

	handles := make([]Handle, 0, t.store.Len())
	t.store.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	return handles
}

// Close stops accepting inserts. Live values stay retrievable.
func (t *Table[T]) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Closed reports whether Close has been called.
func (t *Table[T]) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
