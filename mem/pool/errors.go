package pool

import "errors"

var (
	// ErrExhausted indicates that every slot of a Fixed pool is loaned out.
	// It is distinct from alloc.ErrOutOfMemory: nothing was asked of the
	// backing allocator.
	ErrExhausted = errors.New("pool: exhausted")

	// ErrStaleRef indicates a handle whose slot has been released since the
	// handle was issued (double release).
	ErrStaleRef = errors.New("pool: stale reference")

	// ErrForeignRef indicates a handle issued by a different pool, or the
	// zero Ref.
	ErrForeignRef = errors.New("pool: reference from another pool")

	// ErrClosed indicates an operation on a closed pool.
	ErrClosed = errors.New("pool: closed")
)
