package alloc

import (
	"fmt"

	"github.com/joshuapare/memkit/internal/buf"
)

// MaxHeapAlloc is the largest span a Heap asks the Go runtime for. Larger
// requests fail with ErrOutOfMemory.
const MaxHeapAlloc uint64 = 1 << 47

// Heap is the root allocator of a chain, backed by the Go heap. Regions are
// carved out of an over-sized make([]byte) so that any alignment up to
// MaxAlign can be honoured. Free only drops the accounting; the memory is
// reclaimed by the garbage collector once the caller lets go of it.
//
// A non-zero Limit bounds the bytes in use, which turns the heap into a
// root that can run out of memory.
type Heap struct {
	Limit int

	inUse int
	peak  int
}

// NewHeap returns a Heap bounded by limit bytes (0 means unbounded).
func NewHeap(limit int) *Heap {
	return &Heap{Limit: limit}
}

// Alloc implements Allocator.
func (h *Heap) Alloc(n, align int) ([]byte, error) {
	if err := CheckRequest(n, align); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}
	if h.Limit > 0 && n > h.Limit-h.inUse {
		return nil, fmt.Errorf("%w: heap limit %d, in use %d, need %d",
			ErrOutOfMemory, h.Limit, h.inUse, n)
	}
	if uint64(n)+uint64(align-1) > MaxHeapAlloc {
		return nil, fmt.Errorf("%w: heap request of %d bytes exceeds %d",
			ErrOutOfMemory, n, MaxHeapAlloc)
	}
	total, err := buf.Sum(n, align-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSize, err)
	}

	raw := make([]byte, total)
	pad := buf.AlignAddr(Addr(raw), align)
	region, _ := buf.Slice(raw, pad, n)

	h.inUse += n
	h.peak = max(h.peak, h.inUse)
	return region, nil
}

// Resize implements Allocator.
func (h *Heap) Resize(b []byte, n int) ([]byte, bool) {
	nb, ok := resizeWithinCap(b, n)
	if !ok || (h.Limit > 0 && n-len(b) > h.Limit-h.inUse) {
		return nil, false
	}
	h.inUse += n - len(b)
	h.peak = max(h.peak, h.inUse)
	return nb, true
}

// Remap implements Allocator. Growth beyond the carved span relocates.
func (h *Heap) Remap(b []byte, n int) ([]byte, error) {
	if nb, ok := h.Resize(b, n); ok {
		return nb, nil
	}
	nb, err := relocate(h, b, n)
	if err != nil {
		return nil, err
	}
	return nb, h.Free(b)
}

// Free implements Allocator.
func (h *Heap) Free(b []byte) error {
	h.inUse -= len(b)
	return nil
}

// InUse returns the bytes currently handed out.
func (h *Heap) InUse() int { return h.inUse }

// Peak returns the high-water mark of InUse.
func (h *Heap) Peak() int { return h.peak }

var _ Allocator = (*Heap)(nil)
