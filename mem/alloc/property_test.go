package alloc

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// stacks returns one instance of every strategy for the shared properties.
func stacks() map[string]func() Allocator {
	return map[string]func() Allocator{
		"heap":       func() Allocator { return NewHeap(0) },
		"bump":       func() Allocator { return NewBump(make([]byte, 1<<20)) },
		"counting":   func() Allocator { return NewCounting(NewHeap(0)) },
		"failinject": func() Allocator { return NewFailInjection(NewHeap(0), 1<<30) },
		"logging":    func() Allocator { return NewLogging(NewHeap(0), nil, 0) },
		"tracking":   func() Allocator { return NewTracking(NewHeap(0)) },
		"validating": func() Allocator {
			return NewValidating(NewHeap(0), ValidatingOptions{OnCorruption: func(*CorruptionError) {}})
		},
		"histogram": func() Allocator { return NewSizeHistogram(NewHeap(0), DefaultHistogramOptions) },
		"chain": func() Allocator {
			return NewTracking(NewCounting(NewValidating(NewBump(make([]byte, 1<<20)), ValidatingOptions{})))
		},
	}
}

type span struct{ lo, hi uintptr }

// TestProperties_AlignedAndDisjoint checks that every live region honours
// its alignment, has len == cap == n and never overlaps another live region.
func TestProperties_AlignedAndDisjoint(t *testing.T) {
	for name, mk := range stacks() {
		t.Run(name, func(t *testing.T) {
			a := mk()
			rng := rand.New(rand.NewSource(42))
			var live [][]byte

			for range 400 {
				if len(live) > 0 && rng.Intn(4) == 0 {
					i := rng.Intn(len(live))
					require.NoError(t, a.Free(live[i]))
					live = append(live[:i], live[i+1:]...)
					continue
				}
				n := 1 + rng.Intn(512)
				align := 1 << rng.Intn(9)
				b, err := a.Alloc(n, align)
				require.NoError(t, err)
				require.Len(t, b, n)
				require.Equal(t, n, cap(b))
				require.Zero(t, Addr(b)%uintptr(align), "align %d", align)
				live = append(live, b)
			}

			spans := make([]span, len(live))
			for i, b := range live {
				spans[i] = span{Addr(b), Addr(b) + uintptr(len(b))}
			}
			sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
			for i := 1; i < len(spans); i++ {
				require.LessOrEqual(t, spans[i-1].hi, spans[i].lo, "live regions overlap")
			}
		})
	}
}

// TestProperties_ResizeKeepsAddress checks that a successful Resize never
// moves the region and Remap preserves the prefix.
func TestProperties_ResizeKeepsAddress(t *testing.T) {
	for name, mk := range stacks() {
		t.Run(name, func(t *testing.T) {
			a := mk()
			b, err := a.Alloc(64, 16)
			require.NoError(t, err)
			for i := range b {
				b[i] = byte(i)
			}

			if nb, ok := a.Resize(b, 32); ok {
				require.Equal(t, Addr(b), Addr(nb))
				require.Len(t, nb, 32)
				b = nb
			}

			nb, err := Realloc(a, b, 200)
			require.NoError(t, err)
			for i := range 32 {
				require.Equal(t, byte(i), nb[i])
			}
			require.NoError(t, a.Free(nb))
		})
	}
}

// TestProperties_ZeroLength checks the zero-size request on every strategy.
func TestProperties_ZeroLength(t *testing.T) {
	for name, mk := range stacks() {
		t.Run(name, func(t *testing.T) {
			a := mk()
			b, err := a.Alloc(0, 8)
			require.NoError(t, err)
			require.Len(t, b, 0)
			require.NoError(t, a.Free(b))

			_, err = a.Alloc(8, 6)
			require.ErrorIs(t, err, ErrBadAlign)
			_, err = a.Alloc(-1, 8)
			require.ErrorIs(t, err, ErrBadSize)
		})
	}
}
