package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/alloc"
)

// newThing is written against the create/destroy convention only.
func newThing(c alloc.Creator[item], id int64) (*item, error) {
	v, err := c.Create()
	if err != nil {
		return nil, err
	}
	v.ID = id
	return v, nil
}

func TestAllocator_RecyclesThroughCreator(t *testing.T) {
	c := alloc.NewCounting(alloc.NewHeap(0))
	p := New[item](c)
	a := NewAllocator(p)

	v, err := newThing(a, 1)
	require.NoError(t, err)
	require.NoError(t, a.Destroy(v))

	w, err := newThing(a, 2)
	require.NoError(t, err)
	assert.Same(t, v, w)
	assert.Equal(t, 1, c.Allocs())
	assert.Equal(t, 1, a.Live())
	assert.Equal(t, 1, p.InUse())
}

func TestAllocator_DestroyUnknown(t *testing.T) {
	a := NewAllocator(New[item](alloc.NewHeap(0)))
	v, err := a.Create()
	require.NoError(t, err)
	require.NoError(t, a.Destroy(v))

	require.ErrorIs(t, a.Destroy(v), ErrForeignRef)
	require.ErrorIs(t, a.Destroy(&item{}), ErrForeignRef)
}

func TestAllocator_ZeroSizeValues(t *testing.T) {
	p := New[struct{}](alloc.NewHeap(0))
	a := NewAllocator(p)

	x, err := a.Create()
	require.NoError(t, err)
	y, err := a.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, a.Live())
	assert.Equal(t, 2, p.InUse())

	require.NoError(t, a.Destroy(x))
	require.NoError(t, a.Destroy(y))
	assert.Zero(t, a.Live())
	assert.Zero(t, p.InUse())
	require.ErrorIs(t, a.Destroy(x), ErrForeignRef)
}

func TestAllocator_InterchangeableWithTyped(t *testing.T) {
	creators := map[string]alloc.Creator[item]{
		"typed": alloc.NewTyped[item](alloc.NewHeap(0)),
		"pool":  NewAllocator(New[item](alloc.NewHeap(0))),
	}
	for name, c := range creators {
		t.Run(name, func(t *testing.T) {
			v, err := newThing(c, 42)
			require.NoError(t, err)
			assert.Equal(t, int64(42), v.ID)
			assert.NoError(t, c.Destroy(v))
		})
	}
}
