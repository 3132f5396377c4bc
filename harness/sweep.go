package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/fsbench/bench"
)

// Matrix is the cross product of parameters a sweep covers.
type Matrix struct {
	Modes      []string
	Sizes      []uint64
	BlockSizes []int
	Runs       int
}

// Invocation is one cell of a Matrix.
type Invocation struct {
	Mode   string
	Params bench.Params
}

// Key identifies the invocation in scratch directory names.
func (i Invocation) Key() string {
	return fmt.Sprintf("%s_%d_%d_%d",
		i.Mode, i.Params.Size, i.Params.BlockSize, i.Params.Run)
}

// Validate checks every mode against the registry and every block size
// before anything is launched.
func (m Matrix) Validate() error {
	if len(m.Modes) == 0 {
		return &bench.UsageError{Err: fmt.Errorf("sweep needs at least one mode")}
	}

	for _, mode := range m.Modes {
		if _, err := bench.Lookup(mode); err != nil {
			return err
		}
	}

	for _, bs := range m.BlockSizes {
		if err := (bench.Params{BlockSize: bs}).Validate(); err != nil {
			return err
		}
	}

	if m.Runs < 1 {
		return &bench.UsageError{Err: fmt.Errorf("runs must be at least 1, got %d", m.Runs)}
	}

	// Duplicates would give two invocations the same scratch directory.
	if mode, ok := firstDuplicate(m.Modes); ok {
		return &bench.UsageError{Err: fmt.Errorf("mode %q listed more than once", mode)}
	}

	if size, ok := firstDuplicate(m.Sizes); ok {
		return &bench.UsageError{Err: fmt.Errorf("size %d listed more than once", size)}
	}

	if bs, ok := firstDuplicate(m.BlockSizes); ok {
		return &bench.UsageError{Err: fmt.Errorf("block size %d listed more than once", bs)}
	}

	return nil
}

func firstDuplicate[T comparable](values []T) (T, bool) {
	seen := make(map[T]struct{}, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v, true
		}

		seen[v] = struct{}{}
	}

	var zero T

	return zero, false
}

// Invocations expands the matrix in mode, size, block size, run order.
func (m Matrix) Invocations() []Invocation {
	out := make([]Invocation, 0, len(m.Modes)*len(m.Sizes)*len(m.BlockSizes)*m.Runs)

	for _, mode := range m.Modes {
		for _, size := range m.Sizes {
			for _, bs := range m.BlockSizes {
				for run := 0; run < m.Runs; run++ {
					out = append(out, Invocation{
						Mode: mode,
						Params: bench.Params{
							Size:      size,
							BlockSize: bs,
							Run:       uint32(run),
						},
					})
				}
			}
		}
	}

	return out
}

// Sweep runs every invocation of a Matrix through a Runner.
type Sweep struct {
	Runner     *Runner
	Jobs       int
	ScratchDir string
	ResultsDir string
	Flags      []string
	Timeout    time.Duration
	// KeepScratch leaves each invocation's scratch directory in place.
	KeepScratch bool
	Logger      *slog.Logger
}

// Execute runs the matrix with at most Jobs concurrent children. Each child
// gets its own scratch directory so concurrent invocations never share
// files. The first failure cancels the remaining work. Results are sorted
// by size, then mode, block size and run.
func (s *Sweep) Execute(ctx context.Context, m Matrix) ([]Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", s.ResultsDir, err)
	}

	invocations := m.Invocations()
	results := make([]Result, len(invocations))

	s.Logger.InfoContext(ctx, "starting sweep",
		slog.Int("invocations", len(invocations)),
		slog.Int("jobs", max(s.Jobs, 1)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Jobs, 1))

	for idx, inv := range invocations {
		g.Go(func() error {
			result, err := s.Runner.Run(gctx, RunConfig{
				Mode:        inv.Mode,
				Params:      inv.Params,
				ScratchDir:  filepath.Join(s.ScratchDir, inv.Key()),
				ResultsDir:  s.ResultsDir,
				Flags:       s.Flags,
				Timeout:     s.Timeout,
				KeepScratch: s.KeepScratch,
			})
			if err != nil {
				return fmt.Errorf("run %s: %w", inv.Key(), err)
			}

			results[idx] = *result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortResults(results)

	s.Logger.InfoContext(ctx, "sweep complete",
		slog.Int("results", len(results)),
	)

	return results, nil
}

// SortResults orders results by size, then mode, block size and run.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.BlockSize != b.BlockSize {
			return a.BlockSize < b.BlockSize
		}

		return a.Run < b.Run
	})
}
