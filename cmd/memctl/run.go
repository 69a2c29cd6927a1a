package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/workload"
	"github.com/joshuapare/memkit/mem/alloc"
)

var (
	runConfig    string
	runBuffer    string
	runOps       int
	runSeed      int64
	runFailAfter int
	runKeepLive  bool
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic workload against an allocator stack",
		Long: `The run command builds an allocator stack, drives it with a deterministic
random sequence of allocate, reallocate and free operations and reports the
counters, peak usage, size histogram and any leaks.

Flags override the values from --config.

Example:
  memctl run
  memctl run --buffer 64KiB --ops 5000 --seed 7
  memctl run --config stack.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := runConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			return runWorkload(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&runConfig, "config", "c", "", "YAML stack and workload description")
	cmd.Flags().StringVar(&runBuffer, "buffer", "", "Bump root buffer size (e.g. 64KiB)")
	cmd.Flags().IntVar(&runOps, "ops", 0, "Number of operations")
	cmd.Flags().Int64Var(&runSeed, "seed", 0, "Workload random seed")
	cmd.Flags().IntVar(&runFailAfter, "fail-after", 0, "Fail every allocation after this many")
	cmd.Flags().BoolVar(&runKeepLive, "keep-live", false, "Leave live regions allocated to exercise leak reporting")
	return cmd
}

// runConfigFromFlags loads --config (or the defaults) and applies the flags
// the user set explicitly.
func runConfigFromFlags(cmd *cobra.Command) (workload.Config, error) {
	cfg := workload.Default()
	if runConfig != "" {
		var err error
		if cfg, err = workload.Load(runConfig); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("buffer") {
		size, err := workload.ParseSize(runBuffer)
		if err != nil {
			return cfg, fmt.Errorf("--buffer: %w", err)
		}
		cfg.Root = workload.Root{Kind: workload.RootBump, Size: size}
	}
	if flags.Changed("ops") {
		cfg.Workload.Ops = runOps
	}
	if flags.Changed("seed") {
		cfg.Workload.Seed = runSeed
	}
	if flags.Changed("fail-after") {
		cfg.FailAfter = runFailAfter
	}
	if flags.Changed("keep-live") {
		cfg.Workload.KeepLive = runKeepLive
	}
	return cfg, cfg.Validate()
}

// RunReport is the JSON output of the run command.
type RunReport struct {
	Config  workload.Config  `json:"config"`
	Result  workload.Result  `json:"result"`
	Summary workload.Summary `json:"summary"`
	Leaks   int              `json:"leaks"`
}

func describeStack(cfg workload.Config) string {
	var root string
	switch cfg.Root.Kind {
	case workload.RootBump:
		root = fmt.Sprintf("bump(%s)", humanize.IBytes(uint64(cfg.Root.Size)))
	default:
		root = "heap"
		if cfg.Root.Limit > 0 {
			root = fmt.Sprintf("heap(limit %s)", humanize.IBytes(uint64(cfg.Root.Limit)))
		}
	}
	parts := append([]string{root}, cfg.Layers...)
	if cfg.FailAfter > 0 {
		parts = append(parts, fmt.Sprintf("fail-after(%d)", cfg.FailAfter))
	}
	return strings.Join(parts, " > ")
}

func runWorkload(ctx context.Context, cfg workload.Config) error {
	printVerbose("Building stack: %s\n", describeStack(cfg))

	stack, err := workload.Build(cfg, workload.BuildOptions{})
	if err != nil {
		return err
	}
	res, err := workload.Run(ctx, stack.Top, cfg.Workload)
	if err != nil {
		return fmt.Errorf("workload failed: %w", err)
	}

	closeErr := stack.Close()
	var leak *alloc.LeakError
	if closeErr != nil && !errors.As(closeErr, &leak) {
		return closeErr
	}

	if jsonOut {
		report := RunReport{Config: cfg, Result: res, Summary: stack.Summary()}
		if leak != nil {
			report.Leaks = len(leak.Leaks)
		}
		return printJSON(report)
	}

	printInfo("Stack: %s\n", describeStack(cfg))
	printInfo("Ops: %d (allocs %d, frees %d, reallocs %d, out of memory %d)\n",
		res.Ops, res.Allocs, res.Frees, res.Reallocs, res.OutOfMemory)
	printInfo("Peak live: %s\n", humanize.IBytes(uint64(res.PeakBytes)))
	if !quiet {
		if err := stack.Report(os.Stdout); err != nil {
			return err
		}
	}

	if leak == nil {
		printInfo("Leaks: none\n")
		return nil
	}
	if !quiet {
		return leak.WriteReport(os.Stdout)
	}
	return nil
}
