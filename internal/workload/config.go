// Package workload describes allocator stacks in YAML and drives them with
// deterministic synthetic allocation traffic.
package workload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/alloc"
)

// Root kinds.
const (
	RootBump = "bump"
	RootHeap = "heap"
)

// Layer names, listed bottom-up in Config.Layers.
const (
	LayerValidating = "validating"
	LayerTracking   = "tracking"
	LayerHistogram  = "histogram"
	LayerCounting   = "counting"
	LayerLogging    = "logging"
)

var knownLayers = []string{LayerValidating, LayerTracking, LayerHistogram, LayerCounting, LayerLogging}

// Size is a byte count that accepts either an integer or a humanized string
// such as "64KiB" or "1 MB".
type Size int

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(n *yaml.Node) error {
	var i int
	if n.Tag == "!!int" {
		if err := n.Decode(&i); err != nil {
			return err
		}
		*s = Size(i)
		return nil
	}
	v, err := ParseSize(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (any, error) {
	return humanize.IBytes(uint64(s)), nil
}

// ParseSize parses a byte count like "4096", "16KiB" or "2 MB".
func ParseSize(text string) (Size, error) {
	v, err := humanize.ParseBytes(text)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", text, err)
	}
	if v > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("invalid size %q: too large", text)
	}
	return Size(v), nil
}

// Root selects the allocator at the bottom of the stack.
type Root struct {
	Kind  string `yaml:"kind"`
	Size  Size   `yaml:"size,omitempty"`  // bump buffer size
	Limit Size   `yaml:"limit,omitempty"` // heap byte limit, 0 = unbounded
}

// Params shape the synthetic workload.
type Params struct {
	Ops         int     `yaml:"ops"`
	Seed        int64   `yaml:"seed"`
	MinSize     Size    `yaml:"min_size"`
	MaxSize     Size    `yaml:"max_size"`
	FreeRatio   float64 `yaml:"free_ratio"`
	ResizeRatio float64 `yaml:"resize_ratio"`
	Aligns      []int   `yaml:"aligns"`
	KeepLive    bool    `yaml:"keep_live"` // leave live regions allocated at the end
}

// Config is a complete stack plus workload description.
type Config struct {
	Root       Root     `yaml:"root"`
	Layers     []string `yaml:"layers"`
	FailAfter  int      `yaml:"fail_after"` // 0 disables fail injection
	GuardWidth int      `yaml:"guard_width,omitempty"`
	Workload   Params   `yaml:"workload"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Root:   Root{Kind: RootBump, Size: 1 << 20},
		Layers: []string{LayerValidating, LayerTracking, LayerHistogram, LayerCounting},
		Workload: Params{
			Ops:         1000,
			Seed:        42,
			MinSize:     1,
			MaxSize:     512,
			FreeRatio:   0.4,
			ResizeRatio: 0.1,
			Aligns:      []int{1, 8, 16, 64},
		},
	}
}

// Parse decodes YAML over Default, rejecting unknown fields, and validates
// the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse workload config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read workload config: %w", err)
	}
	return Parse(data)
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs []error
	switch c.Root.Kind {
	case RootBump:
		if c.Root.Size <= 0 {
			errs = append(errs, errors.New("root: bump needs a positive size"))
		}
	case RootHeap:
		if c.Root.Limit < 0 {
			errs = append(errs, errors.New("root: negative heap limit"))
		}
	default:
		errs = append(errs, fmt.Errorf("root: unknown kind %q (want %s or %s)", c.Root.Kind, RootBump, RootHeap))
	}

	seen := make(map[string]bool, len(c.Layers))
	for _, l := range c.Layers {
		if !slices.Contains(knownLayers, l) {
			errs = append(errs, fmt.Errorf("layers: unknown layer %q", l))
		}
		if seen[l] {
			errs = append(errs, fmt.Errorf("layers: %q listed twice", l))
		}
		seen[l] = true
	}
	if c.FailAfter < 0 {
		errs = append(errs, fmt.Errorf("fail_after: negative value %d", c.FailAfter))
	}
	if c.GuardWidth < 0 {
		errs = append(errs, fmt.Errorf("guard_width: negative value %d", c.GuardWidth))
	}

	w := c.Workload
	if w.Ops < 0 {
		errs = append(errs, fmt.Errorf("workload.ops: negative value %d", w.Ops))
	}
	if w.MinSize < 0 || w.MaxSize < w.MinSize {
		errs = append(errs, fmt.Errorf("workload: size range [%d, %d] is empty", w.MinSize, w.MaxSize))
	}
	if w.FreeRatio < 0 || w.FreeRatio > 1 || w.ResizeRatio < 0 || w.ResizeRatio > 1 {
		errs = append(errs, errors.New("workload: ratios must lie in [0, 1]"))
	}
	if len(w.Aligns) == 0 {
		errs = append(errs, errors.New("workload.aligns: at least one alignment required"))
	}
	for _, a := range w.Aligns {
		if !buf.IsPow2(a) || a > alloc.MaxAlign {
			errs = append(errs, fmt.Errorf("workload.aligns: %d is not a power of two <= %d", a, alloc.MaxAlign))
		}
	}
	return errors.Join(errs...)
}
