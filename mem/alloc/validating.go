package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/internal/logger"
)

const (
	// DefaultGuardWidth is the canary band written on each side of a region.
	DefaultGuardWidth = 16

	// DefaultCanary is the byte pattern of the guard bands.
	DefaultCanary uint64 = 0xfdfdfdfdfdfdfdfd

	// ExitCorruption is the process exit code used by the default corruption handler.
	ExitCorruption = 3
)

// CorruptionKind classifies what a Validating allocator found.
type CorruptionKind uint8

const (
	// CorruptUnderrun: the band before the region was overwritten.
	CorruptUnderrun CorruptionKind = iota + 1
	// CorruptOverrun: the band after the region was overwritten.
	CorruptOverrun
	// CorruptUnknownRegion: Free of a region that is not live (double or foreign free).
	CorruptUnknownRegion
)

func (k CorruptionKind) String() string {
	switch k {
	case CorruptUnderrun:
		return "underrun"
	case CorruptOverrun:
		return "overrun"
	case CorruptUnknownRegion:
		return "unknown region"
	default:
		return fmt.Sprintf("CorruptionKind(%d)", uint8(k))
	}
}

// CorruptionError describes a detected memory corruption. It is not a
// recoverable error: once a guard band is damaged, nothing about the heap
// can be trusted.
type CorruptionError struct {
	Kind   CorruptionKind
	Addr   uintptr // user region address
	Size   int     // user region size
	Offset int     // offset of the first damaged byte within its guard band
}

func (e *CorruptionError) Error() string {
	if e.Kind == CorruptUnknownRegion {
		return fmt.Sprintf("alloc: heap corruption: %s at %#x", e.Kind, e.Addr)
	}
	return fmt.Sprintf("alloc: heap corruption: %s of %d-byte region at %#x (guard byte %d)",
		e.Kind, e.Size, e.Addr, e.Offset)
}

// ValidatingOptions configures a Validating allocator.
type ValidatingOptions struct {
	// Width of each guard band in bytes. Default: DefaultGuardWidth.
	Width int

	// Canary pattern written into the guard bands. Default: DefaultCanary.
	Canary uint64

	// OnCorruption receives every detected corruption. The default logs the
	// error and terminates the process with ExitCorruption. Tests may
	// install a handler that returns; the damaged region is then never
	// handed to the parent.
	OnCorruption func(*CorruptionError)
}

// Abort is the default corruption handler.
func Abort(err *CorruptionError) {
	logger.Error("heap corruption detected", "kind", err.Kind.String(),
		"addr", fmt.Sprintf("%#x", err.Addr), "size", err.Size, "offset", err.Offset)
	fmt.Fprintln(os.Stderr, err)
	os.Exit(ExitCorruption)
}

type guarded struct {
	raw   []byte // region obtained from the parent
	front int    // bytes of guard before the user region
	n     int    // user region size
}

// Validating surrounds every region with canary bands and checks them when
// the region is freed, before the parent ever sees it.
//
// A request for n bytes takes front+n+width bytes from the parent, where
// front is the guard width rounded up to the requested alignment (equal to
// the width whenever align <= width). Resize and Remap are unsupported:
// callers reallocate instead.
type Validating struct {
	parent       Allocator
	width        int
	canary       uint64
	onCorruption func(*CorruptionError)
	live         map[uintptr]guarded
}

// NewValidating wraps parent.
func NewValidating(parent Allocator, opts ValidatingOptions) *Validating {
	v := &Validating{
		parent:       parent,
		width:        opts.Width,
		canary:       opts.Canary,
		onCorruption: opts.OnCorruption,
		live:         make(map[uintptr]guarded),
	}
	if v.width <= 0 {
		v.width = DefaultGuardWidth
	}
	if v.canary == 0 {
		v.canary = DefaultCanary
	}
	if v.onCorruption == nil {
		v.onCorruption = Abort
	}
	return v
}

// Alloc implements Allocator.
func (v *Validating) Alloc(n, align int) ([]byte, error) {
	if err := CheckRequest(n, align); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}
	front, ok := buf.AlignUp(v.width, align)
	if !ok {
		return nil, fmt.Errorf("%w: guard width %d", ErrBadSize, v.width)
	}
	total, err := buf.Sum(front, n, v.width)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSize, err)
	}

	raw, err := v.parent.Alloc(total, align)
	if err != nil {
		return nil, err
	}
	buf.Fill(raw[:front], v.canary)
	buf.Fill(raw[front+n:], v.canary)

	user, _ := buf.Slice(raw, front, n)
	v.live[Addr(user)] = guarded{raw: raw, front: front, n: n}
	return user, nil
}

// Resize always fails.
func (v *Validating) Resize(b []byte, n int) ([]byte, bool) {
	return nil, false
}

// Remap always fails with ErrUnsupported.
func (v *Validating) Remap(b []byte, n int) ([]byte, error) {
	return nil, fmt.Errorf("%w: validating allocator does not remap", ErrUnsupported)
}

func (v *Validating) check(addr uintptr, g guarded) *CorruptionError {
	if i := buf.Mismatch(g.raw[:g.front], v.canary); i >= 0 {
		return &CorruptionError{Kind: CorruptUnderrun, Addr: addr, Size: g.n, Offset: i}
	}
	if i := buf.Mismatch(g.raw[g.front+g.n:], v.canary); i >= 0 {
		return &CorruptionError{Kind: CorruptOverrun, Addr: addr, Size: g.n, Offset: i}
	}
	return nil
}

func (v *Validating) corrupt(err *CorruptionError) error {
	v.onCorruption(err)
	return err
}

// Free verifies both guard bands and only then releases the parent region.
// Damage, double free and foreign free go to the corruption handler.
func (v *Validating) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := Addr(b)
	g, ok := v.live[addr]
	if !ok {
		return v.corrupt(&CorruptionError{Kind: CorruptUnknownRegion, Addr: addr, Size: len(b)})
	}
	if cerr := v.check(addr, g); cerr != nil {
		return v.corrupt(cerr)
	}
	delete(v.live, addr)
	return v.parent.Free(g.raw)
}

// Check verifies the guard bands of every live region without freeing any.
// The first damaged region goes to the corruption handler.
func (v *Validating) Check() error {
	for addr, g := range v.live {
		if cerr := v.check(addr, g); cerr != nil {
			return v.corrupt(cerr)
		}
	}
	return nil
}

// Live returns the number of regions currently guarded.
func (v *Validating) Live() int { return len(v.live) }

var _ Allocator = (*Validating)(nil)
