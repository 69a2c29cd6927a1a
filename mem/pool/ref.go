package pool

import (
	"fmt"
	"sync/atomic"
)

// Ref is the handle for one loaned slot. It carries the slot index and the
// slot generation at the time of the loan, so a pool recovers the slot
// without address arithmetic and rejects handles that outlived their loan.
//
// The zero Ref belongs to no pool.
type Ref[T any] struct {
	v    *T
	pool uint32
	idx  int32
	gen  uint32
}

// Value returns the loaned value. It stays valid until the Ref is released.
func (r Ref[T]) Value() *T { return r.v }

// IsZero reports whether r is the zero Ref.
func (r Ref[T]) IsZero() bool { return r.v == nil }

func (r Ref[T]) String() string {
	return fmt.Sprintf("ref{pool=%d slot=%d gen=%d}", r.pool, r.idx, r.gen)
}

var lastPoolID atomic.Uint32

// nextPoolID returns a process-unique, non-zero pool identity.
func nextPoolID() uint32 {
	return lastPoolID.Add(1)
}

// slotState is the loan bookkeeping shared by Pool and Fixed.
type slotState struct {
	gen   uint32
	inUse bool
}

// check validates r against the pool identity and the slot table.
func check[T any](id uint32, r Ref[T], slots int, state func(int32) *slotState) error {
	if r.pool != id || r.idx < 0 || int(r.idx) >= slots {
		return fmt.Errorf("%w: %v", ErrForeignRef, r)
	}
	st := state(r.idx)
	if !st.inUse || st.gen != r.gen {
		return fmt.Errorf("%w: %v, slot generation %d", ErrStaleRef, r, st.gen)
	}
	return nil
}
