package resource

import "math"

// slotStore is an in-memory Store with slot reuse.
// It is not synchronized; Table guards it.
type slotStore[T any] struct {
	entries  []entry[T]
	freeList []Handle
	live     int
	limit    int
}

type entry[T any] struct {
	value T
	valid bool
}

func newSlotStore[T any]() *slotStore[T] {
	return &slotStore[T]{
		entries:  make([]entry[T], 0, 8),
		freeList: make([]Handle, 0, 4),
		limit:    math.MaxUint32,
	}
}

// Create stores a value and returns a handle.
func (s *slotStore[T]) Create(value T) (Handle, error) {
	e := entry[T]{value: value, valid: true}

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		s.live++
		return handle, nil
	}

	if len(s.entries) >= s.limit {
		return InvalidHandle, ErrExhausted
	}

	s.entries = append(s.entries, e)
	s.live++
	return Handle(len(s.entries)), nil
}

func (s *slotStore[T]) slot(handle Handle) *entry[T] {
	if handle == InvalidHandle {
		return nil
	}
	idx := int(handle - 1)
	if idx >= len(s.entries) {
		return nil
	}
	e := &s.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (s *slotStore[T]) Get(handle Handle) (T, bool) {
	e := s.slot(handle)
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Release frees the slot and returns its value.
func (s *slotStore[T]) Release(handle Handle) (T, bool) {
	var zero T

	e := s.slot(handle)
	if e == nil {
		return zero, false
	}

	value := e.value
	e.valid = false
	e.value = zero
	s.freeList = append(s.freeList, handle)
	s.live--

	return value, true
}

// Len returns the number of live values.
func (s *slotStore[T]) Len() int {
	return s.live
}

// Each iterates over live values in slot order.
func (s *slotStore[T]) Each(fn func(Handle, T) bool) {
	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e.value) {
				break
			}
		}
	}
}
