package resource

import "errors"

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// InvalidHandle is never returned by a successful Insert.
const InvalidHandle Handle = 0

var (
	ErrClosed    = errors.New("resource table closed")
	ErrExhausted = errors.New("resource table handle space exhausted")
)

// Store is the storage contract behind Table.
type Store[T any] interface {
	// Create stores a value and returns a handle.
	Create(value T) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (T, bool)

	// Release frees the slot and returns the value it held.
	Release(handle Handle) (T, bool)

	// Len returns the number of live values.
	Len() int

	// Each iterates over live values in slot order until fn returns false.
	Each(fn func(Handle, T) bool)
}
