// Package buf contains overflow-safe size arithmetic and alignment helpers
// shared by the allocator strategies.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when the
// result would overflow or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AlignUp rounds n up to the next multiple of align. align must be a power
// of two; ok is false when the rounded value would overflow.
func AlignUp(n, align int) (int, bool) {
	mask := align - 1
	sum, ok := AddOverflowSafe(n, mask)
	if !ok {
		return 0, false
	}
	return sum &^ mask, true
}

// AlignAddr returns the padding that has to be added to addr so that it
// becomes a multiple of align (a power of two).
func AlignAddr(addr uintptr, align int) int {
	mask := uintptr(align - 1)
	return int(((addr + mask) &^ mask) - addr)
}

// Sum adds every term, failing on the first overflow or negative term.
//
// Guarded allocations use it for front + n + back:
//
//	total, err := buf.Sum(front, n, back)
//	if err != nil {
//	    return nil, fmt.Errorf("guarded size: %w", err)
//	}
func Sum(terms ...int) (int, error) {
	total := 0
	for _, t := range terms {
		if t < 0 {
			return 0, fmt.Errorf("negative term: %d", t)
		}
		next, ok := AddOverflowSafe(total, t)
		if !ok {
			return 0, fmt.Errorf("overflow: %d + %d", total, t)
		}
		total = next
	}
	return total, nil
}

// CheckArray validates that count elements of elementSize bytes can be laid
// out in a single region and returns the region size in bytes.
func CheckArray(count, elementSize int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if elementSize < 0 {
		return 0, fmt.Errorf("negative element size: %d", elementSize)
	}
	total, ok := MulOverflowSafe(count, elementSize)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * elemSize=%d", count, elementSize)
	}
	return total, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
// The result has its capacity clipped to n.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
