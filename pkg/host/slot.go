// Package host connects views to a component host: a construct-once slot,
// per-render updates with mount and unmount callbacks, and a memoizing
// render wrapper.
package host

import "sync"

// Slot builds a value on first use and returns the same value afterwards.
type Slot[T any] struct {
	once  sync.Once
	init  func() T
	value T
}

// NewSlot returns a slot that calls init at most once.
func NewSlot[T any](init func() T) *Slot[T] {
	return &Slot[T]{init: init}
}

// Get returns the slot value, building it on the first call.
func (s *Slot[T]) Get() T {
	s.once.Do(func() {
		if s.init != nil {
			s.value = s.init()
		}
		s.init = nil
	})
	return s.value
}
