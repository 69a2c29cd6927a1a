package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/workload"
	"github.com/joshuapare/memkit/mem/alloc"
)

var (
	bumpBuffer string
	bumpAlign  int
)

func init() {
	rootCmd.AddCommand(newBumpCmd())
}

func newBumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump SIZE...",
		Short: "Replay allocations against a bump allocator",
		Long: `The bump command allocates each SIZE in turn from a fresh bump allocator and
prints the offset after every request. A request that does not fit reports
out of memory and leaves the offset unchanged.

Example:
  memctl bump --buffer 100 50 40 20
  memctl bump --buffer 4KiB --align 64 100 100 100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBump(args)
		},
	}
	cmd.Flags().StringVar(&bumpBuffer, "buffer", "100", "Buffer size (e.g. 100, 4KiB)")
	cmd.Flags().IntVar(&bumpAlign, "align", 1, "Alignment of every request")
	return cmd
}

// BumpStep is one replayed request.
type BumpStep struct {
	Size   int    `json:"size"`
	Start  int    `json:"start,omitempty"`
	Offset int    `json:"offset"`
	Error  string `json:"error,omitempty"`
}

func runBump(args []string) error {
	size, err := workload.ParseSize(bumpBuffer)
	if err != nil {
		return fmt.Errorf("--buffer: %w", err)
	}
	buffer := make([]byte, size)
	bump := alloc.NewBump(buffer)
	base := alloc.Addr(buffer)

	steps := make([]BumpStep, 0, len(args))
	for _, arg := range args {
		n, err := workload.ParseSize(arg)
		if err != nil {
			return err
		}
		step := BumpStep{Size: int(n)}
		b, err := bump.Alloc(int(n), bumpAlign)
		switch {
		case errors.Is(err, alloc.ErrOutOfMemory):
			step.Error = "out of memory"
		case err != nil:
			return err
		case len(b) > 0:
			step.Start = int(alloc.Addr(b) - base)
		}
		step.Offset = bump.Offset()
		steps = append(steps, step)
	}

	if jsonOut {
		return printJSON(steps)
	}
	for _, s := range steps {
		if s.Error != "" {
			printInfo("alloc %d: %s (offset %d)\n", s.Size, s.Error, s.Offset)
			continue
		}
		printInfo("alloc %d: ok at %d, offset %d\n", s.Size, s.Start, s.Offset)
	}
	printVerbose("peak %d of %d bytes\n", bump.Peak(), bump.Cap())
	return nil
}
