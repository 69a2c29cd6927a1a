package alloc

import "errors"

var (
	// ErrOutOfMemory indicates the request cannot be satisfied. It is an ordinary,
	// recoverable outcome; every wrapper hands it back to the caller untouched.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadAlign indicates an alignment that is not a power of two in [1, MaxAlign].
	ErrBadAlign = errors.New("alloc: alignment must be a power of two <= MaxAlign")

	// ErrBadSize indicates a negative or overflowing size.
	ErrBadSize = errors.New("alloc: bad size")

	// ErrUnsupported is returned by Remap on strategies that cannot relocate.
	ErrUnsupported = errors.New("alloc: operation not supported")

	// ErrUnknownFree indicates a Free of an address the allocator never handed out,
	// or one that was already freed.
	ErrUnknownFree = errors.New("alloc: free of unknown address")

	// ErrPointerType indicates a typed placement of a type containing Go pointers
	// into raw allocator memory, which the garbage collector would not scan.
	ErrPointerType = errors.New("alloc: type contains pointers")
)
