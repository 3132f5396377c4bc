package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weiihann/fsbench/bench"
	"github.com/weiihann/fsbench/harness"
)

var runtimeValue = color.New(color.FgGreen).SprintFunc()

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <mode> <size> [block_size] [run]",
		Short: "Run a single benchmark mode",
		Long: `Run one benchmark mode over size bytes in block_size chunks and write
result_<mode>_<size>_<block_size>_<run>.json into the results directory.
block_size is required by every mode; run only tags the result.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are validated before anything touches the scratch
			// directory.
			v, p, err := bench.ParseArgs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			fmt.Fprintf(a.stdout, "benchmarking %s: size=%d, block_size=%d\n",
				v.Name, p.Size, p.BlockSize)

			engine := bench.NewEngine(a.cfg.EngineOptions(), a.logger)

			elapsed, err := engine.Run(ctx, v, p)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", v.Name, err)
			}

			path, err := harness.WriteResult(a.cfg.ResultsDir, harness.NewResult(v.Name, p, elapsed))
			if err != nil {
				return err
			}

			a.logger.DebugContext(ctx, "result written",
				slog.String("path", path),
			)

			fmt.Fprintf(a.stdout, "benchmarking %s: runtime=%s\n",
				v.Name, runtimeValue(elapsed))

			return nil
		},
	}
}
