package csync

import "sync"

// Slice is a generic slice guarded by a read-write mutex. Job output logs are
// Slices: the owning worker appends while subscribers copy.
type Slice[T any] struct {
	data []T
	mu   sync.RWMutex
}

// NewSlice creates an empty Slice.
func NewSlice[T any]() *Slice[T] {
	return &Slice[T]{data: make([]T, 0)}
}

// Append adds elements to the end of the slice.
func (s *Slice[T]) Append(elements ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, elements...)
}

// Get retrieves an element by index.
func (s *Slice[T]) Get(index int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	if index < 0 || index >= len(s.data) {
		return zero, false
	}
	return s.data[index], true
}

// Len returns the current length.
func (s *Slice[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Copy returns an independent copy of the contents.
func (s *Slice[T]) Copy() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.data))
	copy(out, s.data)
	return out
}

// Remove deletes the first element matching the predicate and reports whether
// anything was removed.
func (s *Slice[T]) Remove(predicate func(T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, value := range s.data {
		if predicate(value) {
			s.data = append(s.data[:i], s.data[i+1:]...)
			return true
		}
	}
	return false
}

// Range calls f for each element until f returns false. The lock is held for
// the whole iteration; f must not call back into the slice.
func (s *Slice[T]) Range(f func(index int, value T) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, value := range s.data {
		if !f(i, value) {
			break
		}
	}
}
