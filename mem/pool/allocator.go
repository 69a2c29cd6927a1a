package pool

import (
	"fmt"

	"github.com/joshuapare/memkit/mem/alloc"
)

// Allocator exposes a Pool through the create/destroy convention, mapping
// each created value back to its Ref. Values of a zero-size T all share one
// address, so every pointer keeps a stack of the Refs loaned under it.
type Allocator[T any] struct {
	pool *Pool[T]
	refs map[*T][]Ref[T]
	live int
}

// NewAllocator adapts p.
func NewAllocator[T any](p *Pool[T]) *Allocator[T] {
	return &Allocator[T]{pool: p, refs: make(map[*T][]Ref[T])}
}

// Create implements alloc.Creator.
func (a *Allocator[T]) Create() (*T, error) {
	r, err := a.pool.Acquire()
	if err != nil {
		return nil, err
	}
	a.refs[r.Value()] = append(a.refs[r.Value()], r)
	a.live++
	return r.Value(), nil
}

// Destroy implements alloc.Creator. A value that was not created here, or
// was already destroyed, yields ErrForeignRef.
func (a *Allocator[T]) Destroy(v *T) error {
	refs := a.refs[v]
	if len(refs) == 0 {
		return fmt.Errorf("%w: %p not created by this allocator", ErrForeignRef, v)
	}
	r := refs[len(refs)-1]
	if err := a.pool.Release(r); err != nil {
		return err
	}
	if len(refs) == 1 {
		delete(a.refs, v)
	} else {
		a.refs[v] = refs[:len(refs)-1]
	}
	a.live--
	return nil
}

// Live returns the number of values created and not yet destroyed.
func (a *Allocator[T]) Live() int { return a.live }

var _ alloc.Creator[int] = (*Allocator[int])(nil)
