// Package pool provides object pools layered on an alloc.Allocator.
//
// # Pools
//
//   - Pool: growable free-list pool, LIFO recycling, one slot reserved from
//     the backing allocator per growth step
//   - Fixed: capacity fixed at construction, one contiguous reservation,
//     ErrExhausted when every slot is loaned
//   - Safe: a Pool behind a mutex
//
// NewLazy (or the WithInit option) runs a constructor once per slot when it
// is created. Recycled values are never reset.
//
// # Handles
//
// Acquire returns a Ref carrying the pool identity, the slot index and the
// slot generation. Release checks all three, so a double release returns
// ErrStaleRef and a handle from another pool returns ErrForeignRef instead
// of corrupting the free list:
//
//	p := pool.New[Item](alloc.NewHeap(0))
//	ref, err := p.Acquire()
//	if err != nil {
//	    return err
//	}
//	item := ref.Value()
//	// use item...
//	if err := p.Release(ref); err != nil {
//	    return err
//	}
//
// # Adapters
//
// Allocator presents a Pool as an alloc.Creator. ResourcePool runs an
// expensive setup only for slots that have never been prepared, and
// ConnPool specialises it for network connections.
//
// # Thread Safety
//
// Only Safe is synchronised. Everything else expects a single goroutine or
// external locking.
package pool
