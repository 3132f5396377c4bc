package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/fsbench/harness"
	"github.com/weiihann/fsbench/report"
)

func (a *app) newAggregateCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "aggregate [dir]",
		Short: "Combine result records into one JSON array",
		Long: `Read every result_*.json in dir (default: the results directory),
validate each record and write them as a single JSON array sorted by size.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			results, err := report.Load(a.resultsDir(args))
			if err != nil {
				return err
			}

			if outPath == "" {
				return report.Aggregate(a.stdout, results)
			}

			return writeAggregate(outPath, results)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "",
		"Write to this file instead of stdout")

	return cmd
}

func (a *app) newReportCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "Summarise result records",
		Long: `Summarise the result records in dir (default: the results directory)
as a table of mean, min and max runtime, throughput and runtime relative to
the fastest mode at the same size and block size.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			results, err := report.Load(a.resultsDir(args))
			if err != nil {
				return err
			}

			if outputJSON {
				return report.GenerateJSON(a.stdout, results)
			}

			return report.Generate(a.stdout, results)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

func (a *app) resultsDir(args []string) string {
	if len(args) == 1 {
		return args[0]
	}

	return a.cfg.ResultsDir
}

func writeAggregate(path string, results []harness.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := report.Aggregate(f, results); err != nil {
		f.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
