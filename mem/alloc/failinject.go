package alloc

import "fmt"

// FailInjection forces ErrOutOfMemory once a fixed number of allocations have
// gone through, regardless of how much the parent has left. It exists to
// drive a consumer's out-of-memory path deterministically.
//
// Only Alloc counts and fails; Resize, Remap and Free are forwarded as is.
type FailInjection struct {
	parent    Allocator
	failAfter int
	calls     int
	failures  int
}

// NewFailInjection wraps parent so that the first failAfter allocations are
// forwarded and every later one fails.
func NewFailInjection(parent Allocator, failAfter int) *FailInjection {
	return &FailInjection{parent: parent, failAfter: failAfter}
}

// Alloc implements Allocator.
func (f *FailInjection) Alloc(n, align int) ([]byte, error) {
	if f.calls >= f.failAfter {
		f.failures++
		return nil, fmt.Errorf("%w: injected failure after %d allocations", ErrOutOfMemory, f.failAfter)
	}
	f.calls++
	return f.parent.Alloc(n, align)
}

// Resize implements Allocator.
func (f *FailInjection) Resize(b []byte, n int) ([]byte, bool) {
	return f.parent.Resize(b, n)
}

// Remap implements Allocator.
func (f *FailInjection) Remap(b []byte, n int) ([]byte, error) {
	return f.parent.Remap(b, n)
}

// Free implements Allocator. Freeing never rewinds the call counter.
func (f *FailInjection) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return f.parent.Free(b)
}

// Calls returns the number of allocations forwarded to the parent.
func (f *FailInjection) Calls() int { return f.calls }

// Failures returns the number of allocations that were forced to fail.
func (f *FailInjection) Failures() int { return f.failures }

// Reset re-arms the injector with a new threshold and clears the counters.
func (f *FailInjection) Reset(failAfter int) {
	f.failAfter, f.calls, f.failures = failAfter, 0, 0
}

var _ Allocator = (*FailInjection)(nil)
