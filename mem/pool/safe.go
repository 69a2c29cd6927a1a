package pool

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// Safe serialises every operation of a Pool behind one mutex. The mutex is
// padded to its own cache line so that neighbouring hot fields do not share
// it.
//
// The backing allocator is only ever called with the mutex held.
type Safe[T any] struct {
	_  cpu.CacheLinePad
	mu sync.Mutex
	_  cpu.CacheLinePad

	p *Pool[T]
}

// NewSafe wraps p. p must not be used directly afterwards.
func NewSafe[T any](p *Pool[T]) *Safe[T] {
	return &Safe[T]{p: p}
}

// Acquire is Pool.Acquire under the lock.
func (s *Safe[T]) Acquire() (Ref[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Acquire()
}

// Release is Pool.Release under the lock.
func (s *Safe[T]) Release(r Ref[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Release(r)
}

// Prealloc is Pool.Prealloc under the lock.
func (s *Safe[T]) Prealloc(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Prealloc(n)
}

// Close is Pool.Close. It takes the lock but must still not race with
// other calls: values loaned at the time of Close are never recycled.
func (s *Safe[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Close()
}

// Capacity returns the number of slots ever created.
func (s *Safe[T]) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Capacity()
}

// InUse returns the number of loaned slots.
func (s *Safe[T]) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.InUse()
}
