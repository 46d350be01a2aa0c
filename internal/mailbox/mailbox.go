// Package mailbox implements a single-slot handoff between goroutines.
//
// A Slot holds at most one value. Put overwrites an unconsumed value (counted
// as a drop), TryTake consumes without blocking and Take blocks until a value
// arrives or the slot is closed. The capture session uses a Slot for its
// captured-error handoff and the preview sink uses one for the latest frame.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// Slot is a single-value mailbox. The zero value is not usable, call New.
type Slot[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	full   bool
	closed bool

	drops atomic.Uint64
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	s := &Slot[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put stores v, replacing any unconsumed value. It reports whether a value
// was overwritten. Put on a closed slot is a no-op.
func (s *Slot[T]) Put(v T) (overwrote bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.full {
		overwrote = true
		s.drops.Add(1)
	}
	s.value = v
	s.full = true
	s.cond.Signal()
	return overwrote
}

// TryTake consumes the pending value without blocking.
func (s *Slot[T]) TryTake() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked()
}

// Take blocks until a value is available or the slot is closed. The boolean
// is false only when the slot was closed while empty.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.full && !s.closed {
		s.cond.Wait()
	}
	return s.takeLocked()
}

// Peek returns the pending value without consuming it.
func (s *Slot[T]) Peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.full
}

// Pending reports whether a value is waiting.
func (s *Slot[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Close wakes blocked Take callers. A value already in the slot can still be
// taken after Close.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Drops returns how many values were overwritten before being consumed.
func (s *Slot[T]) Drops() uint64 {
	return s.drops.Load()
}

func (s *Slot[T]) takeLocked() (T, bool) {
	var zero T
	if !s.full {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, true
}
