package pool

import (
	"errors"
	"fmt"
	"math"

	"github.com/joshuapare/memkit/mem/alloc"
)

const noSlot int32 = -1

// node is one slot of a Pool. Free nodes are chained through next.
type node[T any] struct {
	v      *T
	region []byte // reservation obtained from the backing allocator
	next   int32  // next free slot, noSlot terminates the list
	slotState
}

// Pool is a growable free-list object pool. Released values are recycled
// LIFO without touching the backing allocator; a new slot is created only
// when the free list is empty.
//
// Pool is not safe for concurrent use; see Safe.
type Pool[T any] struct {
	backing alloc.Allocator
	init    func() T
	id      uint32

	nodes  []node[T]
	head   int32
	inUse  int
	closed bool
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithInit sets the constructor run exactly once for every slot the pool
// creates. Recycling does not re-run it: a released value is handed out
// again as it was left.
func WithInit[T any](init func() T) Option[T] {
	return func(p *Pool[T]) { p.init = init }
}

// New returns an empty pool whose slots are reserved from backing.
func New[T any](backing alloc.Allocator, opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{
		backing: backing,
		id:      nextPoolID(),
		head:    noSlot,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewLazy returns a pool whose slots are initialised by init when created.
func NewLazy[T any](backing alloc.Allocator, init func() T) *Pool[T] {
	return New(backing, WithInit(init))
}

// grow creates one slot and pushes it onto the free list. Errors from the
// backing allocator are returned unchanged.
func (p *Pool[T]) grow() error {
	if len(p.nodes) == math.MaxInt32 {
		return fmt.Errorf("%w: %d slots", alloc.ErrOutOfMemory, len(p.nodes))
	}
	v, region, err := alloc.Reserve[T](p.backing)
	if err != nil {
		return err
	}
	if p.init != nil {
		*v = p.init()
	}
	p.nodes = append(p.nodes, node[T]{v: v, region: region, next: p.head})
	p.head = int32(len(p.nodes) - 1)
	return nil
}

// Acquire loans out the most recently released value, creating a new slot
// when none is free.
func (p *Pool[T]) Acquire() (Ref[T], error) {
	if p.closed {
		return Ref[T]{}, ErrClosed
	}
	if p.head == noSlot {
		if err := p.grow(); err != nil {
			return Ref[T]{}, err
		}
	}

	i := p.head
	n := &p.nodes[i]
	p.head = n.next
	n.next = noSlot
	n.inUse = true
	p.inUse++
	return Ref[T]{v: n.v, pool: p.id, idx: i, gen: n.gen}, nil
}

// Release returns a loaned value to the free list. Releasing a handle twice
// yields ErrStaleRef; a handle from another pool yields ErrForeignRef.
func (p *Pool[T]) Release(r Ref[T]) error {
	if p.closed {
		return ErrClosed
	}
	if err := check(p.id, r, len(p.nodes), p.state); err != nil {
		return err
	}
	n := &p.nodes[r.idx]
	n.inUse = false
	n.gen++
	n.next = p.head
	p.head = r.idx
	p.inUse--
	return nil
}

func (p *Pool[T]) state(i int32) *slotState { return &p.nodes[i].slotState }

// Prealloc creates n slots up front.
func (p *Pool[T]) Prealloc(n int) error {
	if p.closed {
		return ErrClosed
	}
	for range n {
		if err := p.grow(); err != nil {
			return err
		}
	}
	return nil
}

// eachFree calls fn for every value on the free list.
func (p *Pool[T]) eachFree(fn func(*T)) {
	for i := p.head; i != noSlot; i = p.nodes[i].next {
		fn(p.nodes[i].v)
	}
}

// Close frees the backing region of every idle slot. Loaned slots are not
// visited: their regions stay with the caller and later Releases return
// ErrClosed. Close is idempotent.
func (p *Pool[T]) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for i := p.head; i != noSlot; {
		n := &p.nodes[i]
		if err := p.backing.Free(n.region); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		}
		i, n.next = n.next, noSlot
		n.v, n.region = nil, nil
	}
	p.head = noSlot
	return errors.Join(errs...)
}

// Capacity returns the number of slots ever created. It never shrinks.
func (p *Pool[T]) Capacity() int { return len(p.nodes) }

// InUse returns the number of loaned slots.
func (p *Pool[T]) InUse() int { return p.inUse }

// Free returns the number of idle slots on the free list. A closed pool
// has none.
func (p *Pool[T]) Free() int {
	if p.closed {
		return 0
	}
	return len(p.nodes) - p.inUse
}

// Closed reports whether Close has been called.
func (p *Pool[T]) Closed() bool { return p.closed }
