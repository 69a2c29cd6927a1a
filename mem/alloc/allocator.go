package alloc

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/internal/buf"
)

// MaxAlign is the largest alignment an Allocator has to honour.
const MaxAlign = 4096

// MaxRemapAlign caps the alignment a relocated region is given. Regions
// requested with an alignment above it must be reallocated explicitly.
const MaxRemapAlign = 64

// DefaultAlign is used when a region has to be created without a caller
// supplied alignment (Realloc of an empty region).
const DefaultAlign = 8

// Allocator is the contract every strategy implements and every wrapper
// consumes from its parent.
//
// Implementations:
//   - Heap: root allocator backed by the Go heap
//   - BumpAllocator: monotonic offset over a fixed buffer
//   - Counting, FailInjection, Logging, Tracking, Validating, SizeHistogram:
//     wrappers around a parent Allocator
//
// Regions are []byte views with len == cap == n. The caller borrows a region
// until it is passed to Free or invalidated by a successful Remap. Double
// free, foreign free and use after free are undefined behaviour unless a
// wrapper documents that it detects them.
type Allocator interface {
	// Alloc returns a region of n bytes whose address is a multiple of align.
	// align must be a power of two no greater than MaxAlign. n == 0 returns a
	// zero-length region that must not be dereferenced.
	// Capacity failures return ErrOutOfMemory, never a panic.
	Alloc(n, align int) ([]byte, error)

	// Resize grows or shrinks buf in place. It never moves the region: on
	// success the returned slice shares buf's address. false means the caller
	// has to allocate, copy and free itself.
	Resize(buf []byte, n int) ([]byte, bool)

	// Remap is Resize that may relocate. On success buf must not be used
	// again. A relocated region keeps the alignment of the old address up
	// to MaxRemapAlign. Strategies that cannot relocate return ErrUnsupported.
	Remap(buf []byte, n int) ([]byte, error)

	// Free hands buf back to the strategy. Freeing a zero-length region is
	// a no-op.
	Free(buf []byte) error
}

var zeroBase [1]byte

// Empty returns the zero-length region handed out for n == 0 requests.
func Empty() []byte {
	return zeroBase[:0:0]
}

// Addr returns the start address of a region.
func Addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// AlignOf returns the largest power-of-two alignment (capped at MaxAlign)
// satisfied by the region's address.
func AlignOf(b []byte) int {
	if len(b) == 0 {
		return MaxAlign
	}
	a := Addr(b)
	low := int(a & -a)
	if low == 0 || low > MaxAlign {
		return MaxAlign
	}
	return low
}

// CheckRequest validates an (n, align) request.
func CheckRequest(n, align int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if !buf.IsPow2(align) || align > MaxAlign {
		return fmt.Errorf("%w: %d", ErrBadAlign, align)
	}
	return nil
}

// Realloc changes the size of b through a, trying Resize, then Remap, then
// allocate+copy+free. An empty b is treated as a fresh allocation and n == 0
// frees b.
func Realloc(a Allocator, b []byte, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if len(b) == 0 {
		return a.Alloc(n, DefaultAlign)
	}
	if n == 0 {
		return Empty(), a.Free(b)
	}
	if nb, ok := a.Resize(b, n); ok {
		return nb, nil
	}
	nb, err := a.Remap(b, n)
	if err == nil {
		return nb, nil
	}
	if !errors.Is(err, ErrUnsupported) {
		return nil, err
	}
	if nb, err = a.Alloc(n, remapAlign(b)); err != nil {
		return nil, err
	}
	copy(nb, b)
	return nb, a.Free(b)
}

// Dup copies src into a new region from a.
func Dup(a Allocator, src []byte) ([]byte, error) {
	b, err := a.Alloc(len(src), 1)
	if err != nil {
		return nil, err
	}
	copy(b, src)
	return b, nil
}

// relocate implements Remap for strategies that move by allocate+copy. The
// old region is not freed.
func relocate(a Allocator, b []byte, n int) ([]byte, error) {
	if len(b) == 0 {
		return a.Alloc(n, DefaultAlign)
	}
	nb, err := a.Alloc(n, remapAlign(b))
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	return nb, nil
}

// remapAlign is the alignment a relocated copy of b is allocated with.
func remapAlign(b []byte) int {
	return min(AlignOf(b), MaxRemapAlign)
}

// resizeWithinCap is the in-place rule shared by the root strategies: the
// region may shrink, and grow back up to the span that was carved out for it.
func resizeWithinCap(b []byte, n int) ([]byte, bool) {
	if n < 0 || n > cap(b) {
		return nil, false
	}
	return b[:n], true
}
