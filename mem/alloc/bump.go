package alloc

import (
	"fmt"

	"github.com/joshuapare/memkit/internal/buf"
)

// BumpAllocator is an append-only allocator over a single caller-supplied
// buffer. It keeps one offset and moves it forward on every allocation.
//
// Key characteristics:
//   - O(1) allocation: align the current address, check the bound, advance
//   - Zero per-allocation overhead: no headers, no free lists
//   - Free() is a no-op; memory comes back all at once through Reset()
//   - Exceeding the buffer is a hard ErrOutOfMemory, never a partial region
//
// It is a natural root for arenas whose lifetime is one request or one
// pass, and a convenient bounded parent for the diagnostic wrappers.
type BumpAllocator struct {
	buf []byte

	// off is the bump pointer: the first byte of buf not yet handed out.
	off int

	// peak is the highest offset ever reached. Survives Reset.
	peak int
}

// NewBump creates a BumpAllocator that carves regions out of buffer.
// The allocator never grows buffer and never writes to it.
func NewBump(buffer []byte) *BumpAllocator {
	return &BumpAllocator{buf: buffer}
}

// Alloc rounds the current address up to align and reserves n bytes.
// On failure the offset is left untouched.
func (ba *BumpAllocator) Alloc(n, align int) ([]byte, error) {
	if err := CheckRequest(n, align); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}

	pad := buf.AlignAddr(Addr(ba.buf)+uintptr(ba.off), align)
	start := ba.off + pad
	end, ok := buf.AddOverflowSafe(start, n)
	if !ok || end > len(ba.buf) {
		return nil, fmt.Errorf("%w: bump: need %d bytes (align %d) at offset %d of %d",
			ErrOutOfMemory, n, align, ba.off, len(ba.buf))
	}

	ba.off = end
	ba.peak = max(ba.peak, end)
	return ba.buf[start:end:end], nil
}

// Resize succeeds only within the span that was carved out for b: a region
// can shrink and grow back, never past its original length.
func (ba *BumpAllocator) Resize(b []byte, n int) ([]byte, bool) {
	if len(b) > 0 && !ba.Owns(b) {
		return nil, false
	}
	return resizeWithinCap(b, n)
}

// Remap resizes in place when possible and otherwise bump-allocates a new
// span and copies. The old span is abandoned until Reset.
func (ba *BumpAllocator) Remap(b []byte, n int) ([]byte, error) {
	if nb, ok := ba.Resize(b, n); ok {
		return nb, nil
	}
	return relocate(ba, b, n)
}

// Free is a no-op. Bump allocation does not reclaim individual regions.
func (ba *BumpAllocator) Free(b []byte) error {
	return nil
}

// Reset rewinds the offset to zero. Every region handed out before the
// reset becomes invalid at once; callers must not retain any of them.
func (ba *BumpAllocator) Reset() {
	ba.off = 0
}

// Owns reports whether b lies inside the allocator's buffer.
func (ba *BumpAllocator) Owns(b []byte) bool {
	if len(ba.buf) == 0 || len(b) == 0 {
		return false
	}
	base, p := Addr(ba.buf), Addr(b)
	return p >= base && p+uintptr(len(b)) <= base+uintptr(len(ba.buf))
}

// Offset returns the current bump offset.
func (ba *BumpAllocator) Offset() int { return ba.off }

// Cap returns the size of the underlying buffer.
func (ba *BumpAllocator) Cap() int { return len(ba.buf) }

// Available returns the bytes left after the current offset, ignoring alignment padding.
func (ba *BumpAllocator) Available() int { return len(ba.buf) - ba.off }

// Peak returns the highest offset reached since construction.
func (ba *BumpAllocator) Peak() int { return ba.peak }

// Compile-time interface check
var _ Allocator = (*BumpAllocator)(nil)
