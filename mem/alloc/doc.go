// Package alloc provides a composable allocator contract and a set of
// strategies that implement it and stack on top of one another.
//
// # Overview
//
// Every strategy implements the Allocator interface:
//
//   - Alloc(n, align): a region of n bytes at an address that is a multiple of align
//   - Resize(buf, n): grow or shrink in place, never moving
//   - Remap(buf, n): resize that may relocate (or ErrUnsupported)
//   - Free(buf): hand the region back
//
// Regions are []byte views with len == cap == n. A wrapper takes its parent
// as an Allocator, so chains are built bottom-up:
//
//	root := alloc.NewBump(make([]byte, 1<<20))
//	tr := alloc.NewTracking(alloc.NewValidating(root, alloc.ValidatingOptions{}))
//	cnt := alloc.NewCounting(tr)
//
//	b, err := cnt.Alloc(256, 16)
//	if err != nil {
//	    return err // errors.Is(err, alloc.ErrOutOfMemory)
//	}
//	defer cnt.Free(b)
//
// # Implementations
//
// Roots:
//
//   - Heap: Go-heap backed, optionally bounded by a byte limit
//   - BumpAllocator: monotonic offset over a fixed buffer, Free is a no-op, Reset rewinds
//
// Wrappers (transparent unless noted):
//
//   - Counting: allocation/free counters and byte totals
//   - FailInjection: forces ErrOutOfMemory after N allocations (changes outcomes)
//   - Logging: one slog record per operation
//   - Tracking: live set with call sites, totals, peak and leak report
//   - Validating: canary guard bands checked on free; damage is fatal (changes outcomes)
//   - SizeHistogram: allocation counts per size class
//
// # Errors
//
// ErrOutOfMemory is an ordinary result and every wrapper hands it back
// untouched (FailInjection manufactures it). Corruption found by Validating
// is not returned as a recoverable error: the default handler terminates
// the process. Tracking reports frees of unknown addresses with
// ErrUnknownFree and leaks from Close as a *LeakError.
//
// Double free, foreign free, use after Free, Remap or Reset are undefined
// behaviour for every strategy that does not document detecting them.
//
// # Typed values
//
// Create/Destroy and MakeSlice/FreeSlice place pointer-free values directly in
// allocator memory. Reserve and ReserveSlice accept any type and fall back to
// Go-allocated values, keeping the region only as a reservation, when the type
// holds pointers the garbage collector must see.
//
// # Thread Safety
//
// None of the allocators are safe for concurrent use. Callers must
// synchronize access externally.
package alloc
