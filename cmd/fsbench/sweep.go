package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/weiihann/fsbench/bench"
	"github.com/weiihann/fsbench/harness"
	"github.com/weiihann/fsbench/report"
)

type sweepConfig struct {
	modes       []string
	sizes       []string
	blockSizes  []string
	runs        int
	jobs        int
	binary      string
	buildDir    string
	wrapper     string
	env         []string
	timeout     time.Duration
	keepScratch bool
	outPath     string
	outputJSON  bool
}

func (a *app) newSweepCmd() *cobra.Command {
	var cfg sweepConfig

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a matrix of modes, sizes and block sizes",
		Long: `Run every combination of modes, sizes, block sizes and runs, each as a
separate fsbench child process with its own scratch directory. Results are
written to the results directory and summarised on stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSweep(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&cfg.modes, "modes",
		[]string{"write_inorder", "update_inorder", "read_inorder"},
		"Modes to run (see fsbench list)")
	flags.StringSliceVar(&cfg.sizes, "sizes", []string{"1MiB"},
		"Total sizes, e.g. 4KiB,1MiB,1GiB")
	flags.StringSliceVar(&cfg.blockSizes, "block-sizes", []string{"512"},
		"Block sizes, e.g. 512,4KiB")
	flags.IntVar(&cfg.runs, "runs", 5,
		"Runs per combination")
	flags.IntVar(&cfg.jobs, "jobs", 1,
		"Children run concurrently")
	flags.StringVar(&cfg.binary, "binary", "",
		"fsbench binary to launch (default: this executable)")
	flags.StringVar(&cfg.buildDir, "build", "",
		"Build fsbench from the module at this path before sweeping")
	flags.StringVar(&cfg.wrapper, "wrapper", "",
		"Command prefix for every child, e.g. \"taskset -c 2\"")
	flags.StringSliceVar(&cfg.env, "env", nil,
		"Extra KEY=VALUE environment for children and the build")
	flags.DurationVar(&cfg.timeout, "timeout", 30*time.Minute,
		"Per-child timeout")
	flags.BoolVar(&cfg.keepScratch, "keep-scratch", false,
		"Keep each child's scratch directory")
	flags.StringVarP(&cfg.outPath, "out", "o", "",
		"Also write the aggregated results to this file")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output the summary as JSON instead of a table")

	return cmd
}

func (a *app) runSweep(ctx context.Context, cfg sweepConfig) error {
	matrix, err := buildMatrix(cfg)
	if err != nil {
		return err
	}

	// Reject bad modes and block sizes before building or launching
	// anything.
	if err := matrix.Validate(); err != nil {
		return err
	}

	binPath, err := a.resolveBinary(ctx, cfg)
	if err != nil {
		return err
	}

	cmdCfg := harness.WrapCommand(strings.Fields(cfg.wrapper), binPath, cfg.env)
	runner := harness.NewRunner(cmdCfg.Binary, cmdCfg.ExtraArgs, cmdCfg.Env, a.logger)

	sweep := &harness.Sweep{
		Runner:      runner,
		Jobs:        cfg.jobs,
		ScratchDir:  a.cfg.ScratchDir,
		ResultsDir:  a.cfg.ResultsDir,
		Flags:       a.cfg.ChildFlags(),
		Timeout:     cfg.timeout,
		KeepScratch: cfg.keepScratch,
		Logger:      a.logger,
	}

	results, err := sweep.Execute(ctx, matrix)
	if err != nil {
		return err
	}

	if cfg.outPath != "" {
		if err := writeAggregate(cfg.outPath, results); err != nil {
			return err
		}

		a.logger.InfoContext(ctx, "aggregated results written",
			slog.String("path", cfg.outPath),
		)
	}

	if cfg.outputJSON {
		return report.GenerateJSON(a.stdout, results)
	}

	return report.Generate(a.stdout, results)
}

func (a *app) resolveBinary(ctx context.Context, cfg sweepConfig) (string, error) {
	if cfg.buildDir == "" {
		return harness.ResolveBinary(cfg.binary)
	}

	out := cfg.binary
	if out == "" {
		dir, err := os.MkdirTemp("", "fsbench-build-*")
		if err != nil {
			return "", fmt.Errorf("create build dir: %w", err)
		}

		out = filepath.Join(dir, "fsbench")
	}

	return harness.Build(ctx, a.logger, cfg.buildDir, out, cfg.env)
}

func buildMatrix(cfg sweepConfig) (harness.Matrix, error) {
	sizes := make([]uint64, 0, len(cfg.sizes))

	for _, s := range cfg.sizes {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return harness.Matrix{}, &bench.UsageError{Err: fmt.Errorf("can't parse size %q: %w", s, err)}
		}

		sizes = append(sizes, n)
	}

	blocks := make([]int, 0, len(cfg.blockSizes))

	for _, s := range cfg.blockSizes {
		n, err := humanize.ParseBytes(s)
		if err != nil || n > math.MaxInt32 {
			return harness.Matrix{}, &bench.UsageError{Err: fmt.Errorf("can't parse block size %q", s)}
		}

		blocks = append(blocks, int(n))
	}

	return harness.Matrix{
		Modes:      cfg.modes,
		Sizes:      sizes,
		BlockSizes: blocks,
		Runs:       cfg.runs,
	}, nil
}
