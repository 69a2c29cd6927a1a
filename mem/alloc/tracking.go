package alloc

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-stack/stack"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memkit/internal/logger"
)

// Record describes one live allocation seen by a Tracking allocator.
type Record struct {
	Addr   uintptr `json:"addr"`
	Size   int     `json:"size"`
	Origin string  `json:"origin"` // call site outside this package, path/file.go:line
}

// Tracking keeps a live set of every region handed out by its parent,
// together with running and peak byte totals. A non-empty live set at Close
// is the leak signal.
//
// Zero-length regions are not recorded: they hold no memory.
type Tracking struct {
	parent Allocator
	live   map[uintptr]Record
	total  int
	peak   int

	// CaptureOrigin records the caller's file:line for every allocation.
	// On by default; switch off for hot benchmarks.
	CaptureOrigin bool
}

// NewTracking wraps parent.
func NewTracking(parent Allocator) *Tracking {
	return &Tracking{
		parent:        parent,
		live:          make(map[uintptr]Record),
		CaptureOrigin: true,
	}
}

var pkgPath = reflect.TypeOf(Tracking{}).PkgPath()

// callSite returns the first frame outside this package.
func callSite() string {
	for _, c := range stack.Trace().TrimRuntime() {
		fn := c.Frame().Function
		if strings.HasPrefix(fn, pkgPath+".") && !strings.HasPrefix(fn, pkgPath+".Test") {
			continue
		}
		return fmt.Sprintf("%+v", c)
	}
	return "unknown"
}

func (t *Tracking) record(b []byte, origin string) {
	if len(b) == 0 {
		return
	}
	t.live[Addr(b)] = Record{Addr: Addr(b), Size: len(b), Origin: origin}
	t.total += len(b)
	t.peak = max(t.peak, t.total)
}

// Alloc implements Allocator.
func (t *Tracking) Alloc(n, align int) ([]byte, error) {
	b, err := t.parent.Alloc(n, align)
	if err != nil {
		return nil, err
	}
	origin := ""
	if t.CaptureOrigin && n > 0 {
		origin = callSite()
	}
	t.record(b, origin)
	return b, nil
}

// Resize implements Allocator and keeps the record's size current.
func (t *Tracking) Resize(b []byte, n int) ([]byte, bool) {
	nb, ok := t.parent.Resize(b, n)
	if !ok {
		return nil, false
	}
	if rec, found := t.live[Addr(b)]; found {
		t.total += n - rec.Size
		t.peak = max(t.peak, t.total)
		if n == 0 {
			delete(t.live, rec.Addr)
		} else {
			rec.Size = n
			t.live[rec.Addr] = rec
		}
	}
	return nb, true
}

// Remap implements Allocator. The record moves with the region and keeps
// its origin.
func (t *Tracking) Remap(b []byte, n int) ([]byte, error) {
	nb, err := t.parent.Remap(b, n)
	if err != nil {
		return nil, err
	}
	origin := ""
	if rec, found := t.live[Addr(b)]; found {
		origin = rec.Origin
		t.total -= rec.Size
		delete(t.live, rec.Addr)
	}
	t.record(nb, origin)
	return nb, nil
}

// Free removes the record and forwards to the parent. An address with no
// record is a double free or a foreign free: it is reported with
// ErrUnknownFree and not forwarded.
func (t *Tracking) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	rec, found := t.live[Addr(b)]
	if !found {
		logger.Warn("free of unknown address", "addr", fmt.Sprintf("%#x", Addr(b)), "size", len(b),
			"site", callSite())
		return fmt.Errorf("%w: %#x (%d bytes)", ErrUnknownFree, Addr(b), len(b))
	}
	delete(t.live, rec.Addr)
	t.total -= rec.Size
	return t.parent.Free(b)
}

// Total returns the bytes currently live.
func (t *Tracking) Total() int { return t.total }

// Peak returns the high-water mark of Total.
func (t *Tracking) Peak() int { return t.peak }

// Live returns the number of live allocations.
func (t *Tracking) Live() int { return len(t.live) }

// Leaks enumerates the live set ordered by address.
func (t *Tracking) Leaks() []Record {
	out := make([]Record, 0, len(t.live))
	for _, rec := range t.live {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Close ends the tracking session. It does not free anything; a non-empty
// live set is returned as a *LeakError and logged, never raised.
func (t *Tracking) Close() error {
	if len(t.live) == 0 {
		return nil
	}
	leaks := t.Leaks()
	for _, rec := range leaks {
		logger.Warn("leaked allocation", "addr", fmt.Sprintf("%#x", rec.Addr), "size", rec.Size,
			"origin", rec.Origin)
	}
	return &LeakError{Leaks: leaks}
}

// LeakError is the report produced by Tracking.Close when allocations are
// still live.
type LeakError struct {
	Leaks []Record
}

// Bytes returns the total size of the leaked allocations.
func (e *LeakError) Bytes() int {
	n := 0
	for _, rec := range e.Leaks {
		n += rec.Size
	}
	return n
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("alloc: %d leaked allocations (%s)", len(e.Leaks), humanize.IBytes(uint64(e.Bytes())))
}

// WriteReport prints one line per leak, sizes grouped per the English locale.
func (e *LeakError) WriteReport(w io.Writer) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "%d leaked allocations, %d bytes\n", len(e.Leaks), e.Bytes()); err != nil {
		return err
	}
	for _, rec := range e.Leaks {
		if _, err := p.Fprintf(w, "  %#x  %8d bytes  %s\n", rec.Addr, rec.Size, rec.Origin); err != nil {
			return err
		}
	}
	return nil
}

var _ Allocator = (*Tracking)(nil)
