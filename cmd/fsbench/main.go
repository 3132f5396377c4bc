// Package main provides the CLI entry point for fsbench, a filesystem
// micro-benchmark that times write, update and read patterns over one large
// file or a directory of small files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiihann/fsbench/bench"
	"github.com/weiihann/fsbench/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// execute runs the CLI and maps the outcome to an exit status: 0 on
// success, 2 for usage errors and 1 for everything else.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, nil)),
	}

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var usage *bench.UsageError
	if errors.As(err, &usage) {
		fmt.Fprint(stderr, cmd.UsageString())

		return 2
	}

	return 1
}

// app carries the state resolved by the root command into subcommands.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fsbench",
		Short: "Filesystem micro-benchmark",
		Long: `fsbench times write, update and read passes over a scratch directory.
Each mode combines an operation, a visiting order (inorder, reversed or
random) and a storage style (one large file, buffered, incremental or one
small file per block). Block contents come from a seeded xorshift64 stream
so every run of a mode produces the same bytes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.configPath)
			if err != nil {
				return &bench.UsageError{Err: err}
			}

			a.cfg = cfg
			a.logger = cfg.NewLogger(a.stderr)

			return nil
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &bench.UsageError{Err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "",
		"Config file (yaml, json or toml)")

	if err := config.RegisterFlags(a.v, flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		a.newRunCmd(),
		a.newListCmd(),
		a.newConfigCmd(),
		a.newSweepCmd(),
		a.newAggregateCmd(),
		a.newReportCmd(),
	)

	return root
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every benchmark mode",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range bench.Names() {
				fmt.Fprintln(a.stdout, name)
			}

			return nil
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := pp.Fprintln(a.stdout, a.cfg)

			return err
		},
	}
}
