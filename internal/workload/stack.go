package workload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshuapare/memkit/mem/alloc"
)

// Stack is a built allocator chain. Top is the allocator consumers use; the
// typed fields expose each layer that was configured (nil otherwise).
type Stack struct {
	Top alloc.Allocator

	Bump       *alloc.BumpAllocator
	Heap       *alloc.Heap
	Validating *alloc.Validating
	Tracking   *alloc.Tracking
	Histogram  *alloc.SizeHistogram
	Counting   *alloc.Counting
	Logging    *alloc.Logging
	Fail       *alloc.FailInjection
}

// BuildOptions carry the runtime hooks a YAML file cannot express.
type BuildOptions struct {
	// OnCorruption replaces the Validating layer's default handler, which
	// terminates the process.
	OnCorruption func(*alloc.CorruptionError)

	// Logger receives the Logging layer's records. Default: logger.L.
	Logger *slog.Logger
}

// Build assembles the chain described by cfg: the root, then each layer in
// order, then fail injection on top when FailAfter > 0.
func Build(cfg Config, opts BuildOptions) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Stack{}
	switch cfg.Root.Kind {
	case RootBump:
		s.Bump = alloc.NewBump(make([]byte, cfg.Root.Size))
		s.Top = s.Bump
	case RootHeap:
		s.Heap = alloc.NewHeap(int(cfg.Root.Limit))
		s.Top = s.Heap
	}

	for _, layer := range cfg.Layers {
		switch layer {
		case LayerValidating:
			s.Validating = alloc.NewValidating(s.Top, alloc.ValidatingOptions{
				Width:        cfg.GuardWidth,
				OnCorruption: opts.OnCorruption,
			})
			s.Top = s.Validating
		case LayerTracking:
			s.Tracking = alloc.NewTracking(s.Top)
			s.Top = s.Tracking
		case LayerHistogram:
			s.Histogram = alloc.NewSizeHistogram(s.Top, alloc.DefaultHistogramOptions)
			s.Top = s.Histogram
		case LayerCounting:
			s.Counting = alloc.NewCounting(s.Top)
			s.Top = s.Counting
		case LayerLogging:
			s.Logging = alloc.NewLogging(s.Top, opts.Logger, slog.LevelDebug)
			s.Top = s.Logging
		default:
			return nil, fmt.Errorf("unknown layer %q", layer)
		}
	}

	if cfg.FailAfter > 0 {
		s.Fail = alloc.NewFailInjection(s.Top, cfg.FailAfter)
		s.Top = s.Fail
	}
	return s, nil
}

// Summary is the machine-readable state of a stack.
type Summary struct {
	Counting  *alloc.CountingStats `json:"counting,omitempty"`
	Peak      int                  `json:"peak_bytes"`
	Live      []alloc.Record       `json:"live,omitempty"`
	Histogram []alloc.Bucket       `json:"histogram,omitempty"`
	Injected  int                  `json:"injected_failures"`
	BumpUsed  int                  `json:"bump_offset,omitempty"`
}

// Summary collects counters from every configured layer.
func (s *Stack) Summary() Summary {
	var sum Summary
	if s.Counting != nil {
		st := s.Counting.Stats()
		sum.Counting = &st
	}
	switch {
	case s.Tracking != nil:
		sum.Peak = s.Tracking.Peak()
		sum.Live = s.Tracking.Leaks()
	case s.Heap != nil:
		sum.Peak = s.Heap.Peak()
	case s.Bump != nil:
		sum.Peak = s.Bump.Peak()
	}
	if s.Histogram != nil {
		for _, b := range s.Histogram.Buckets() {
			if b.Count > 0 {
				sum.Histogram = append(sum.Histogram, b)
			}
		}
	}
	if s.Fail != nil {
		sum.Injected = s.Fail.Failures()
	}
	if s.Bump != nil {
		sum.BumpUsed = s.Bump.Offset()
	}
	return sum
}

// Report writes a human-readable summary of every configured layer.
func (s *Stack) Report(w io.Writer) error {
	if s.Counting != nil {
		if _, err := fmt.Fprintf(w, "counting: %s\n", s.Counting); err != nil {
			return err
		}
	}
	if s.Fail != nil {
		if _, err := fmt.Fprintf(w, "fail injection: %d calls, %d injected failures\n",
			s.Fail.Calls(), s.Fail.Failures()); err != nil {
			return err
		}
	}
	if s.Bump != nil {
		if _, err := fmt.Fprintf(w, "bump: offset %d of %d, peak %d\n",
			s.Bump.Offset(), s.Bump.Cap(), s.Bump.Peak()); err != nil {
			return err
		}
	}
	if s.Tracking != nil {
		if _, err := fmt.Fprintf(w, "tracking: %d live, %d bytes, peak %d bytes\n",
			s.Tracking.Live(), s.Tracking.Total(), s.Tracking.Peak()); err != nil {
			return err
		}
	}
	if s.Histogram != nil {
		if err := s.Histogram.Report(w); err != nil {
			return err
		}
	}
	return nil
}

// Close ends the session. With a tracking layer, live regions come back as
// an *alloc.LeakError; with a validating layer, every live guard band is
// checked first.
func (s *Stack) Close() error {
	var errs []error
	if s.Validating != nil {
		errs = append(errs, s.Validating.Check())
	}
	if s.Tracking != nil {
		errs = append(errs, s.Tracking.Close())
	}
	return errors.Join(errs...)
}
