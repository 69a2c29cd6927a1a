package pool

import (
	"context"
	"fmt"
	"net"

	"github.com/joshuapare/memkit/mem/alloc"
)

// Dialer opens a new connection.
type Dialer func(ctx context.Context) (net.Conn, error)

// Conn is a pooled connection.
type Conn struct {
	net.Conn

	ID   int // dial sequence number, starting at 1
	Uses int // number of leases served by this connection
}

// ConnPool reuses connections: a dial happens only when no idle connection
// is available.
type ConnPool struct {
	rp    *ResourcePool[Conn]
	dial  Dialer
	dials int
}

// NewConnPool returns a connection pool whose slots are reserved from
// backing.
func NewConnPool(backing alloc.Allocator, dial Dialer) *ConnPool {
	cp := &ConnPool{dial: dial}
	cp.rp = NewResourcePool[Conn](backing, cp.connect)
	return cp
}

func (cp *ConnPool) connect(ctx context.Context, c *Conn) error {
	nc, err := cp.dial(ctx)
	if err != nil {
		return fmt.Errorf("pool: dial: %w", err)
	}
	cp.dials++
	*c = Conn{Conn: nc, ID: cp.dials}
	return nil
}

// Get leases a connection, dialling only if no idle one exists.
func (cp *ConnPool) Get(ctx context.Context) (Lease[Conn], error) {
	l, err := cp.rp.Acquire(ctx)
	if err != nil {
		return Lease[Conn]{}, err
	}
	l.Value().Uses++
	return l, nil
}

// Put returns a healthy connection for reuse.
func (cp *ConnPool) Put(l Lease[Conn]) error {
	return cp.rp.Release(l)
}

// Drop closes a broken connection; its slot dials again on next use.
func (cp *ConnPool) Drop(l Lease[Conn]) error {
	c := l.Value()
	if c == nil {
		return fmt.Errorf("%w: zero lease", ErrForeignRef)
	}
	closeErr := c.Close()
	if err := cp.rp.Invalidate(l); err != nil {
		return err
	}
	return closeErr
}

// Dials returns the number of successful dials.
func (cp *ConnPool) Dials() int { return cp.dials }

// Idle returns the number of slots not currently leased.
func (cp *ConnPool) Idle() int { return cp.rp.Capacity() - cp.rp.InUse() }

// Close closes every idle connection and releases the pool.
func (cp *ConnPool) Close() error {
	return cp.rp.Close(func(c *Conn) error { return c.Close() })
}
