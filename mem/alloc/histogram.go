package alloc

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// HistogramOptions defines the size classes of a SizeHistogram.
type HistogramOptions struct {
	// Small allocation settings (linear increments)
	SmallMax       int // Max for linear increments. Default: 64
	SmallIncrement int // Increment size for small classes. Default: 8

	// Medium/Large settings (logarithmic growth)
	MediumMax    int     // Largest bounded class; bigger sizes land in the overflow bucket. Default: 16KiB
	GrowthFactor float64 // Exponential growth factor. Default: 2.0
}

// DefaultHistogramOptions: 8-byte steps up to 64, then doubling up to 16KiB.
var DefaultHistogramOptions = HistogramOptions{
	SmallMax:       64,
	SmallIncrement: 8,
	MediumMax:      16 * 1024,
	GrowthFactor:   2.0,
}

// Bucket is one size class of a SizeHistogram. Upper is inclusive; the
// overflow bucket has Upper == math.MaxInt.
type Bucket struct {
	Upper int `json:"upper"`
	Count int `json:"count"`
	Bytes int `json:"bytes"`
}

// newBoundaries computes inclusive upper bounds for each size class.
func newBoundaries(o HistogramOptions) []int {
	if o.SmallIncrement <= 0 {
		o.SmallIncrement = DefaultHistogramOptions.SmallIncrement
	}
	if o.SmallMax <= 0 {
		o.SmallMax = DefaultHistogramOptions.SmallMax
	}
	if o.MediumMax <= 0 {
		o.MediumMax = DefaultHistogramOptions.MediumMax
	}
	if o.GrowthFactor <= 1 {
		o.GrowthFactor = DefaultHistogramOptions.GrowthFactor
	}

	bounds := make([]int, 0, 32)

	// Phase 1: small allocations, linear increments
	for size := o.SmallIncrement; size <= o.SmallMax; size += o.SmallIncrement {
		bounds = append(bounds, size)
	}

	// Phase 2: logarithmic growth
	size := bounds[len(bounds)-1]
	for size < o.MediumMax {
		next := int(math.Ceil(float64(size) * o.GrowthFactor))
		if next <= size {
			next = size + 1 // Ensure progress
		}
		size = min(next, o.MediumMax)
		bounds = append(bounds, size)
	}
	return bounds
}

// SizeHistogram is a pass-through profiler that buckets every successful
// allocation by size class.
type SizeHistogram struct {
	parent  Allocator
	buckets []Bucket
}

// NewSizeHistogram wraps parent.
func NewSizeHistogram(parent Allocator, opts HistogramOptions) *SizeHistogram {
	bounds := newBoundaries(opts)
	buckets := make([]Bucket, len(bounds)+1)
	for i, b := range bounds {
		buckets[i].Upper = b
	}
	buckets[len(bounds)].Upper = math.MaxInt
	return &SizeHistogram{parent: parent, buckets: buckets}
}

// classOf returns the index of the smallest bucket whose bound covers size.
func (h *SizeHistogram) classOf(size int) int {
	return sort.Search(len(h.buckets), func(i int) bool { return size <= h.buckets[i].Upper })
}

// Alloc implements Allocator.
func (h *SizeHistogram) Alloc(n, align int) ([]byte, error) {
	b, err := h.parent.Alloc(n, align)
	if err != nil {
		return nil, err
	}
	bk := &h.buckets[h.classOf(n)]
	bk.Count++
	bk.Bytes += n
	return b, nil
}

// Resize implements Allocator.
func (h *SizeHistogram) Resize(b []byte, n int) ([]byte, bool) { return h.parent.Resize(b, n) }

// Remap implements Allocator.
func (h *SizeHistogram) Remap(b []byte, n int) ([]byte, error) { return h.parent.Remap(b, n) }

// Free implements Allocator.
func (h *SizeHistogram) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return h.parent.Free(b)
}

// Buckets returns a copy of every bucket, including empty ones.
func (h *SizeHistogram) Buckets() []Bucket {
	return append([]Bucket(nil), h.buckets...)
}

// NumClasses returns the number of bounded size classes (excluding overflow).
func (h *SizeHistogram) NumClasses() int {
	return len(h.buckets) - 1
}

// Label renders a bucket's range, e.g. "17 B-24 B" or "> 16 KiB".
func (h *SizeHistogram) Label(i int) string {
	if i == len(h.buckets)-1 {
		return "> " + humanize.IBytes(uint64(h.buckets[i-1].Upper))
	}
	lo := 0
	if i > 0 {
		lo = h.buckets[i-1].Upper + 1
	}
	return fmt.Sprintf("%s-%s", humanize.IBytes(uint64(lo)), humanize.IBytes(uint64(h.buckets[i].Upper)))
}

// Report writes the non-empty buckets with a proportional bar.
func (h *SizeHistogram) Report(w io.Writer) error {
	total := 0
	for _, b := range h.buckets {
		total += b.Count
	}
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "%d allocations\n", total); err != nil {
		return err
	}
	for i, b := range h.buckets {
		if b.Count == 0 {
			continue
		}
		bar := make([]byte, b.Count*40/total)
		for j := range bar {
			bar[j] = '#'
		}
		if _, err := p.Fprintf(w, "  %-20s %10d %12d B  %s\n", h.Label(i), b.Count, b.Bytes, bar); err != nil {
			return err
		}
	}
	return nil
}

var _ Allocator = (*SizeHistogram)(nil)
