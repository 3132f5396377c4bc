package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/weiihann/fsbench/bench"
)

// RunConfig holds parameters for a single child invocation.
type RunConfig struct {
	Mode       string
	Params     bench.Params
	ScratchDir string
	ResultsDir string
	// Flags are passed through to the child after the positional
	// arguments, e.g. --seed or --sync.
	Flags   []string
	Timeout time.Duration
	// KeepScratch leaves the invocation's scratch directory in place.
	KeepScratch bool
}

// Runner launches the fsbench binary as a child process, one variant per
// process.
type Runner struct {
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner. When the benchmark runs inside a wrapper (a
// sandbox runtime, taskset, ...), pass the wrapper as binaryPath and the
// fsbench binary as the last element of extraArgs. Env is appended to the
// inherited environment.
func NewRunner(
	binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger,
	}
}

// Run executes one invocation and returns its persisted result.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger := r.Logger.With(
		slog.String("mode", cfg.Mode),
		slog.Uint64("size", cfg.Params.Size),
		slog.Int("block_size", cfg.Params.BlockSize),
		slog.Uint64("run", uint64(cfg.Params.Run)),
	)

	if err := os.RemoveAll(cfg.ScratchDir); err != nil {
		return nil, fmt.Errorf("clean scratch dir %s: %w", cfg.ScratchDir, err)
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir %s: %w", cfg.ScratchDir, err)
	}

	args := make([]string, 0, len(r.ExtraArgs)+len(cfg.Flags)+9)
	args = append(args, r.ExtraArgs...)
	args = append(args,
		"run",
		cfg.Mode,
		strconv.FormatUint(cfg.Params.Size, 10),
		strconv.Itoa(cfg.Params.BlockSize),
		strconv.FormatUint(uint64(cfg.Params.Run), 10),
		"--scratch", cfg.ScratchDir,
		"--results", cfg.ResultsDir,
	)
	args = append(args, cfg.Flags...)

	cmd := exec.CommandContext(ctx, r.BinaryPath, args...)

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugContext(ctx, "starting benchmark process",
		slog.String("binary", r.BinaryPath),
		slog.String("scratch_dir", cfg.ScratchDir),
	)

	wallStart := time.Now()

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf(
			"benchmark %s failed: %w\nstderr: %s",
			cfg.Mode, err, stderr.String(),
		)
	}

	wallElapsed := time.Since(wallStart)

	result, err := ReadResult(ResultPath(cfg.ResultsDir, cfg.Mode, cfg.Params))
	if err != nil {
		return nil, fmt.Errorf(
			"read %s result: %w\nstdout: %s",
			cfg.Mode, err, stdout.String(),
		)
	}

	logger.InfoContext(ctx, "benchmark finished",
		slog.Duration("wall_time", wallElapsed),
		slog.Duration("runtime", result.Duration()),
	)

	leftover, err := dirSize(cfg.ScratchDir)
	if err != nil {
		logger.Warn("failed to measure scratch dir",
			slog.String("error", err.Error()),
		)
	} else if leftover > 0 {
		logger.Warn("benchmark left data in scratch",
			slog.Uint64("bytes", leftover),
		)
	}

	if !cfg.KeepScratch {
		if err := os.RemoveAll(cfg.ScratchDir); err != nil {
			return nil, fmt.Errorf("clean scratch dir %s: %w", cfg.ScratchDir, err)
		}
	}

	return result, nil
}

func dirSize(path string) (uint64, error) {
	var size uint64

	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += uint64(info.Size())
		}

		return nil
	})

	return size, err
}
