package pool

import (
	"context"
	"errors"

	"github.com/joshuapare/memkit/mem/alloc"
)

// resource is a pooled value plus whether its setup has run.
type resource[T any] struct {
	val   T
	ready bool
}

// Lease is a loaned, set-up resource.
type Lease[T any] struct {
	ref Ref[resource[T]]
}

// Value returns the leased resource.
func (l Lease[T]) Value() *T {
	if r := l.ref.Value(); r != nil {
		return &r.val
	}
	return nil
}

// SetupFunc prepares a freshly created or invalidated resource.
type SetupFunc[T any] func(ctx context.Context, v *T) error

// ResourcePool recycles values whose preparation is expensive. Setup runs
// only when a slot has never been set up (or was invalidated); a released
// resource keeps its state and is handed out again as is.
//
// ResourcePool is not safe for concurrent use.
type ResourcePool[T any] struct {
	pool   *Pool[resource[T]]
	setup  SetupFunc[T]
	setups int
}

// NewResourcePool returns a pool whose slots are reserved from backing and
// prepared with setup.
func NewResourcePool[T any](backing alloc.Allocator, setup SetupFunc[T]) *ResourcePool[T] {
	return &ResourcePool[T]{
		pool:  New[resource[T]](backing),
		setup: setup,
	}
}

// Acquire leases a resource, running setup if the slot is not ready. A
// failed setup returns the slot unprepared.
func (rp *ResourcePool[T]) Acquire(ctx context.Context) (Lease[T], error) {
	if err := ctx.Err(); err != nil {
		return Lease[T]{}, err
	}
	ref, err := rp.pool.Acquire()
	if err != nil {
		return Lease[T]{}, err
	}
	r := ref.Value()
	if !r.ready {
		if err := rp.setup(ctx, &r.val); err != nil {
			return Lease[T]{}, errors.Join(err, rp.pool.Release(ref))
		}
		r.ready = true
		rp.setups++
	}
	return Lease[T]{ref: ref}, nil
}

// Release returns a resource without tearing it down.
func (rp *ResourcePool[T]) Release(l Lease[T]) error {
	return rp.pool.Release(l.ref)
}

// Invalidate returns a resource that must be set up again before its next
// lease. The caller disposes of whatever the resource held.
func (rp *ResourcePool[T]) Invalidate(l Lease[T]) error {
	if err := rp.pool.Release(l.ref); err != nil {
		return err
	}
	var zero T
	r := l.ref.Value()
	r.val, r.ready = zero, false
	return nil
}

// Close runs teardown on every idle resource that was set up, then closes
// the underlying pool. Leased resources are not visited.
func (rp *ResourcePool[T]) Close(teardown func(*T) error) error {
	var errs []error
	if teardown != nil && !rp.pool.Closed() {
		rp.pool.eachFree(func(r *resource[T]) {
			if !r.ready {
				return
			}
			errs = append(errs, teardown(&r.val))
			r.ready = false
		})
	}
	errs = append(errs, rp.pool.Close())
	return errors.Join(errs...)
}

// Setups returns how many times setup has succeeded.
func (rp *ResourcePool[T]) Setups() int { return rp.setups }

// Capacity returns the number of slots ever created.
func (rp *ResourcePool[T]) Capacity() int { return rp.pool.Capacity() }

// InUse returns the number of leased resources.
func (rp *ResourcePool[T]) InUse() int { return rp.pool.InUse() }
