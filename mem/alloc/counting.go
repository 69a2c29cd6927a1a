package alloc

import "fmt"

// CountingStats is a snapshot of a Counting allocator.
type CountingStats struct {
	Allocs         int `json:"allocs"`
	Frees          int `json:"frees"`
	Resizes        int `json:"resizes"`
	Remaps         int `json:"remaps"`
	Failures       int `json:"failures"`
	BytesAllocated int `json:"bytes_allocated"`
	BytesFreed     int `json:"bytes_freed"`
}

// Counting is a pure observer: it counts traffic between a consumer and its
// parent and never changes an outcome.
type Counting struct {
	parent Allocator
	stats  CountingStats
}

// NewCounting wraps parent.
func NewCounting(parent Allocator) *Counting {
	return &Counting{parent: parent}
}

// Alloc counts successful allocations and the bytes they requested.
func (c *Counting) Alloc(n, align int) ([]byte, error) {
	b, err := c.parent.Alloc(n, align)
	if err != nil {
		c.stats.Failures++
		return nil, err
	}
	c.stats.Allocs++
	c.stats.BytesAllocated += n
	return b, nil
}

// Resize implements Allocator.
func (c *Counting) Resize(b []byte, n int) ([]byte, bool) {
	nb, ok := c.parent.Resize(b, n)
	if ok {
		c.stats.Resizes++
	}
	return nb, ok
}

// Remap implements Allocator.
func (c *Counting) Remap(b []byte, n int) ([]byte, error) {
	nb, err := c.parent.Remap(b, n)
	if err == nil {
		c.stats.Remaps++
	}
	return nb, err
}

// Free counts every call, whatever the parent answers. Zero-length regions
// are neither counted nor forwarded.
func (c *Counting) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.stats.Frees++
	c.stats.BytesFreed += len(b)
	return c.parent.Free(b)
}

// Allocs returns the number of successful allocations.
func (c *Counting) Allocs() int { return c.stats.Allocs }

// Frees returns the number of Free calls.
func (c *Counting) Frees() int { return c.stats.Frees }

// BytesAllocated returns the sum of n over successful allocations.
func (c *Counting) BytesAllocated() int { return c.stats.BytesAllocated }

// Stats returns a copy of all counters.
func (c *Counting) Stats() CountingStats { return c.stats }

func (c *Counting) String() string {
	s := c.stats
	return fmt.Sprintf("allocs=%d frees=%d bytes=%d resizes=%d remaps=%d failures=%d",
		s.Allocs, s.Frees, s.BytesAllocated, s.Resizes, s.Remaps, s.Failures)
}

var _ Allocator = (*Counting)(nil)
