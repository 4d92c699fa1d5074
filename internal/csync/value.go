package csync

import "sync"

// Value holds a single value behind a mutex. Job state lives in a Value so
// lifecycle transitions can use CompareAndSwap instead of a wider lock.
type Value[T comparable] struct {
	value T
	mu    sync.RWMutex
}

// NewValue creates a Value holding v.
func NewValue[T comparable](v T) *Value[T] {
	return &Value[T]{value: v}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the current value.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
}

// CompareAndSwap sets the value to next only if it currently equals expected.
func (v *Value[T]) CompareAndSwap(expected, next T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.value != expected {
		return false
	}
	v.value = next
	return true
}
