package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBumpAllocator_Scenario replays 50 + 40 + 20 bytes over a 100-byte buffer.
func TestBumpAllocator_Scenario(t *testing.T) {
	ba := NewBump(make([]byte, 100))

	a, err := ba.Alloc(50, 1)
	require.NoError(t, err)
	require.Len(t, a, 50)
	assert.Equal(t, 50, ba.Offset())

	b, err := ba.Alloc(40, 1)
	require.NoError(t, err)
	require.Len(t, b, 40)
	assert.Equal(t, 90, ba.Offset())

	_, err = ba.Alloc(20, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 90, ba.Offset(), "failed allocation must not move the offset")
}

// TestBumpAllocator_Alignment tests that every returned address honours the requested alignment.
func TestBumpAllocator_Alignment(t *testing.T) {
	ba := NewBump(make([]byte, 8192))

	aligns := []int{1, 2, 4, 8, 16, 32, 64, 128, 256}
	sizes := []int{1, 3, 7, 13, 24, 5}
	for _, align := range aligns {
		for _, size := range sizes {
			b, err := ba.Alloc(size, align)
			require.NoError(t, err, "Alloc(%d, %d) should succeed", size, align)
			assert.Zero(t, Addr(b)%uintptr(align), "address not %d-aligned for size %d", align, size)
			assert.Equal(t, size, len(b))
			assert.Equal(t, size, cap(b), "region capacity must be clipped")
		}
	}
}

// TestBumpAllocator_Monotonic tests that successive regions never overlap.
func TestBumpAllocator_Monotonic(t *testing.T) {
	ba := NewBump(make([]byte, 4096))

	var prevEnd uintptr
	for i := range 50 {
		b, err := ba.Alloc(8+i, 1<<(i%5))
		require.NoError(t, err)
		start := Addr(b)
		assert.GreaterOrEqual(t, start, prevEnd, "region %d overlaps its predecessor", i)
		prevEnd = start + uintptr(len(b))
	}
}

// TestBumpAllocator_Reset tests that the full buffer is usable again after Reset.
func TestBumpAllocator_Reset(t *testing.T) {
	ba := NewBump(make([]byte, 256))

	total := 0
	for _, n := range []int{100, 100, 56} {
		_, err := ba.Alloc(n, 1)
		require.NoError(t, err)
		total += n
	}
	_, err := ba.Alloc(1, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	ba.Reset()
	assert.Equal(t, 0, ba.Offset())
	assert.Equal(t, 256, ba.Peak(), "peak survives reset")

	b, err := ba.Alloc(total, 1)
	require.NoError(t, err, "same total must fit after Reset")
	assert.Len(t, b, total)
}

// TestBumpAllocator_Resize tests the carved-span rule.
func TestBumpAllocator_Resize(t *testing.T) {
	ba := NewBump(make([]byte, 256))
	b, err := ba.Alloc(32, 8)
	require.NoError(t, err)

	small, ok := ba.Resize(b, 16)
	require.True(t, ok)
	assert.Len(t, small, 16)
	assert.Equal(t, Addr(b), Addr(small), "resize must not move")

	back, ok := ba.Resize(small, 32)
	require.True(t, ok, "growing back within the carved span succeeds")
	assert.Len(t, back, 32)

	_, ok = ba.Resize(back, 33)
	assert.False(t, ok, "never grows past the carved span")

	_, ok = ba.Resize(make([]byte, 8), 4)
	assert.False(t, ok, "foreign regions are refused")
}

// TestBumpAllocator_Remap tests relocation when the region cannot grow in place.
func TestBumpAllocator_Remap(t *testing.T) {
	ba := NewBump(make([]byte, 512))
	b, err := ba.Alloc(16, 8)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i)
	}

	nb, err := ba.Remap(b, 64)
	require.NoError(t, err)
	require.Len(t, nb, 64)
	assert.NotEqual(t, Addr(b), Addr(nb))
	assert.Equal(t, b, nb[:16], "contents must be copied")
	assert.Zero(t, Addr(nb)%8)

	same, err := ba.Remap(nb, 32)
	require.NoError(t, err)
	assert.Equal(t, Addr(nb), Addr(same), "shrink stays in place")

	_, err = ba.Remap(same, 1024)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

// TestBumpAllocator_FreeIsNoop tests that Free neither fails nor reclaims.
func TestBumpAllocator_FreeIsNoop(t *testing.T) {
	ba := NewBump(make([]byte, 64))
	b, err := ba.Alloc(32, 1)
	require.NoError(t, err)

	require.NoError(t, ba.Free(b))
	assert.Equal(t, 32, ba.Offset())
	assert.Equal(t, 32, ba.Available())
	assert.Equal(t, 64, ba.Cap())
}

// TestBumpAllocator_ZeroAndInvalid tests zero-length and malformed requests.
func TestBumpAllocator_ZeroAndInvalid(t *testing.T) {
	ba := NewBump(make([]byte, 64))

	b, err := ba.Alloc(0, 8)
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Empty(t, b)
	assert.Equal(t, 0, ba.Offset())
	require.NoError(t, ba.Free(b))

	_, err = ba.Alloc(8, 3)
	assert.ErrorIs(t, err, ErrBadAlign)
	_, err = ba.Alloc(8, 2*MaxAlign)
	assert.ErrorIs(t, err, ErrBadAlign)
	_, err = ba.Alloc(-1, 1)
	assert.ErrorIs(t, err, ErrBadSize)
}

// TestBumpAllocator_Owns tests buffer membership.
func TestBumpAllocator_Owns(t *testing.T) {
	ba := NewBump(make([]byte, 64))
	b, err := ba.Alloc(16, 1)
	require.NoError(t, err)

	assert.True(t, ba.Owns(b))
	assert.False(t, ba.Owns(make([]byte, 16)))
	assert.False(t, ba.Owns(Empty()))
	assert.False(t, NewBump(nil).Owns(b))
}

func BenchmarkBumpAlloc(b *testing.B) {
	ba := NewBump(make([]byte, 1<<20))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := ba.Alloc(48, 8); err != nil {
			ba.Reset()
		}
	}
}
