package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/alloc"
)

// Result counts what a run did. OutOfMemory failures are part of a normal
// run; any other error aborts it.
type Result struct {
	Ops         int `json:"ops"`
	Allocs      int `json:"allocs"`
	Frees       int `json:"frees"`
	Reallocs    int `json:"reallocs"`
	OutOfMemory int `json:"out_of_memory"`
	LiveRegions int `json:"live_regions"`
	LiveBytes   int `json:"live_bytes"`
	PeakBytes   int `json:"peak_bytes"`
}

// region is one live allocation and the byte it was filled with.
type region struct {
	b    []byte
	fill byte
}

// ctxCheckEvery is how many operations run between context checks.
const ctxCheckEvery = 256

// Run drives a with p.Ops random operations. The same Params always produce
// the same sequence. Every region is filled on allocation and verified
// before it is freed or resized, so overlapping regions show up as an error.
func Run(ctx context.Context, a alloc.Allocator, p Params) (Result, error) {
	rng := rand.New(rand.NewSource(p.Seed))
	var (
		res  Result
		live []region
	)

	sizeOf := func() int {
		return int(p.MinSize) + rng.Intn(int(p.MaxSize-p.MinSize)+1)
	}
	remove := func(i int) {
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
	}

	for op := range p.Ops {
		if op%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		res.Ops++

		r := rng.Float64()
		switch {
		case len(live) > 0 && r < p.FreeRatio:
			i := rng.Intn(len(live))
			if err := verify(live[i]); err != nil {
				return res, err
			}
			if err := a.Free(live[i].b); err != nil {
				return res, fmt.Errorf("op %d: free: %w", op, err)
			}
			res.LiveBytes -= len(live[i].b)
			remove(i)
			res.Frees++

		case len(live) > 0 && r < p.FreeRatio+p.ResizeRatio:
			i := rng.Intn(len(live))
			old := live[i]
			if err := verify(old); err != nil {
				return res, err
			}
			n := sizeOf()
			nb, err := alloc.Realloc(a, old.b, n)
			if errors.Is(err, alloc.ErrOutOfMemory) {
				res.OutOfMemory++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("op %d: realloc %d -> %d: %w", op, len(old.b), n, err)
			}
			keep := min(len(old.b), n)
			for j := range keep {
				if nb[j] != old.fill {
					return res, fmt.Errorf("op %d: realloc lost contents at byte %d", op, j)
				}
			}
			for j := keep; j < n; j++ {
				nb[j] = old.fill
			}
			res.LiveBytes += n - len(old.b)
			live[i].b = nb
			res.Reallocs++

		default:
			n := sizeOf()
			align := p.Aligns[rng.Intn(len(p.Aligns))]
			b, err := a.Alloc(n, align)
			if errors.Is(err, alloc.ErrOutOfMemory) {
				res.OutOfMemory++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("op %d: alloc %d/%d: %w", op, n, align, err)
			}
			if alloc.Addr(b)%uintptr(align) != 0 {
				return res, fmt.Errorf("op %d: region %#x not aligned to %d", op, alloc.Addr(b), align)
			}
			fill := byte(op) | 1
			for j := range b {
				b[j] = fill
			}
			live = append(live, region{b: b, fill: fill})
			res.LiveBytes += n
			res.Allocs++
		}
		res.PeakBytes = max(res.PeakBytes, res.LiveBytes)
	}

	for _, r := range live {
		if err := verify(r); err != nil {
			return res, err
		}
	}
	if !p.KeepLive {
		for _, r := range live {
			if err := a.Free(r.b); err != nil {
				return res, fmt.Errorf("drain: %w", err)
			}
			res.Frees++
		}
		res.LiveBytes = 0
		live = nil
	}
	res.LiveRegions = len(live)

	logger.Debug("workload finished", "ops", res.Ops, "allocs", res.Allocs, "frees", res.Frees,
		"oom", res.OutOfMemory, "peak", res.PeakBytes)
	return res, nil
}

func verify(r region) error {
	for j, c := range r.b {
		if c != r.fill {
			return fmt.Errorf("region %#x clobbered at byte %d: %#x != %#x", alloc.Addr(r.b), j, c, r.fill)
		}
	}
	return nil
}
