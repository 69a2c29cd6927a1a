package pool

import (
	"fmt"
	"math"

	"github.com/joshuapare/memkit/mem/alloc"
)

// Fixed is a pool with a capacity set at construction. All slots are
// reserved from the backing allocator in one contiguous array; Acquire and
// Release never allocate.
type Fixed[T any] struct {
	backing alloc.Allocator
	id      uint32

	slots     []T
	region    []byte
	available []bool
	state     []slotState
	inUse     int
	closed    bool
}

// NewFixed reserves capacity slots from backing. Errors from the backing
// allocator are returned unchanged.
func NewFixed[T any](backing alloc.Allocator, capacity int) (*Fixed[T], error) {
	if capacity > math.MaxInt32 {
		return nil, fmt.Errorf("%w: capacity %d", alloc.ErrBadSize, capacity)
	}
	slots, region, err := alloc.ReserveSlice[T](backing, capacity)
	if err != nil {
		return nil, err
	}
	available := make([]bool, capacity)
	for i := range available {
		available[i] = true
	}
	return &Fixed[T]{
		backing:   backing,
		id:        nextPoolID(),
		slots:     slots,
		region:    region,
		available: available,
		state:     make([]slotState, capacity),
	}, nil
}

// Acquire loans out the lowest free slot, or returns ErrExhausted.
func (f *Fixed[T]) Acquire() (Ref[T], error) {
	if f.closed {
		return Ref[T]{}, ErrClosed
	}
	for i, ok := range f.available {
		if !ok {
			continue
		}
		f.available[i] = false
		f.state[i].inUse = true
		f.inUse++
		return Ref[T]{v: &f.slots[i], pool: f.id, idx: int32(i), gen: f.state[i].gen}, nil
	}
	return Ref[T]{}, fmt.Errorf("%w: all %d slots in use", ErrExhausted, len(f.slots))
}

// Release returns a slot. The value is not reset.
func (f *Fixed[T]) Release(r Ref[T]) error {
	if f.closed {
		return ErrClosed
	}
	if err := check(f.id, r, len(f.slots), func(i int32) *slotState { return &f.state[i] }); err != nil {
		return err
	}
	st := &f.state[r.idx]
	st.inUse = false
	st.gen++
	f.available[r.idx] = true
	f.inUse--
	return nil
}

// Close returns the slot array to the backing allocator. Outstanding Refs
// must not be used afterwards.
func (f *Fixed[T]) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.slots = nil
	return f.backing.Free(f.region)
}

// Capacity returns the number of slots.
func (f *Fixed[T]) Capacity() int { return len(f.available) }

// InUse returns the number of loaned slots.
func (f *Fixed[T]) InUse() int { return f.inUse }

// Free returns the number of idle slots. A closed pool has none.
func (f *Fixed[T]) Free() int {
	if f.closed {
		return 0
	}
	return len(f.available) - f.inUse
}
