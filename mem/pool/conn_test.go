package pool

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/alloc"
)

// pipeDialer hands out in-memory connections whose far ends echo one line.
func pipeDialer(t *testing.T) Dialer {
	t.Helper()
	return func(ctx context.Context) (net.Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			_, _ = io.Copy(server, server)
		}()
		return client, nil
	}
}

func roundTrip(t *testing.T, c net.Conn, msg string) {
	t.Helper()
	_, err := c.Write([]byte(msg))
	require.NoError(t, err)
	got := make([]byte, len(msg))
	_, err = io.ReadFull(c, got)
	require.NoError(t, err)
	assert.Equal(t, msg, string(got))
}

func TestConnPool_Reuse(t *testing.T) {
	cp := NewConnPool(alloc.NewHeap(0), pipeDialer(t))
	ctx := t.Context()

	for i := range 5 {
		l, err := cp.Get(ctx)
		require.NoError(t, err)
		roundTrip(t, l.Value(), "ping")
		assert.Equal(t, 1, l.Value().ID)
		assert.Equal(t, i+1, l.Value().Uses)
		require.NoError(t, cp.Put(l))
	}
	assert.Equal(t, 1, cp.Dials(), "one dial serves every sequential lease")
	assert.Equal(t, 1, cp.Idle())
	require.NoError(t, cp.Close())
}

func TestConnPool_TwoLeases(t *testing.T) {
	cp := NewConnPool(alloc.NewHeap(0), pipeDialer(t))
	ctx := t.Context()

	a, err := cp.Get(ctx)
	require.NoError(t, err)
	b, err := cp.Get(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.Value().ID, b.Value().ID)
	assert.Equal(t, 2, cp.Dials())

	require.NoError(t, cp.Put(a))
	require.NoError(t, cp.Put(b))
	c, err := cp.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.Value().ID, c.Value().ID, "most recently returned first")
	require.NoError(t, cp.Put(c))
	require.NoError(t, cp.Close())
}

func TestConnPool_Drop(t *testing.T) {
	cp := NewConnPool(alloc.NewHeap(0), pipeDialer(t))
	ctx := t.Context()

	l, err := cp.Get(ctx)
	require.NoError(t, err)
	conn := l.Value().Conn
	require.NoError(t, cp.Drop(l))

	_, err = conn.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	l, err = cp.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Value().ID, "a dropped slot dials again")
	assert.Equal(t, 1, l.Value().Uses)
	roundTrip(t, l.Value(), "pong")
	require.NoError(t, cp.Put(l))
	require.NoError(t, cp.Close())
}

func TestConnPool_DialError(t *testing.T) {
	errRefused := errors.New("connection refused")
	cp := NewConnPool(alloc.NewHeap(0), func(context.Context) (net.Conn, error) {
		return nil, errRefused
	})
	_, err := cp.Get(t.Context())
	require.ErrorIs(t, err, errRefused)
	assert.Contains(t, err.Error(), "dial")
	assert.Equal(t, 0, cp.Dials())
}

func TestConnPool_BackingOutOfMemory(t *testing.T) {
	cp := NewConnPool(alloc.NewFailInjection(alloc.NewHeap(0), 0), pipeDialer(t))
	_, err := cp.Get(t.Context())
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
	assert.Equal(t, 0, cp.Dials())
}

func TestConnPool_ZeroLease(t *testing.T) {
	cp := NewConnPool(alloc.NewHeap(0), pipeDialer(t))
	var zero Lease[Conn]
	require.NotPanics(t, func() {
		assert.ErrorIs(t, cp.Drop(zero), ErrForeignRef)
	})
	assert.ErrorIs(t, cp.Put(zero), ErrForeignRef)
	require.NoError(t, cp.Close())
}
