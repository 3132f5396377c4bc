package bench

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/weiihann/fsbench/workload"
)

// Options configure an Engine.
type Options struct {
	ScratchDir string
	Seed       uint64
	Sync       SyncMode
	// DropCache evicts fixture data from the page cache before read
	// phases.
	DropCache bool
}

// Engine executes benchmark variants. It is not safe for concurrent use
// on the same scratch directory with identical parameters.
type Engine struct {
	opts   Options
	logger *slog.Logger

	// inspect, when set, runs after the timed phase and before cleanup.
	inspect func(path string)
	// visit, when set, sees every block index of the timed pass.
	visit func(i uint64)
}

// NewEngine creates an Engine. A zero seed falls back to
// workload.DefaultSeed and an empty sync mode to SyncFull.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if opts.Seed == 0 {
		opts.Seed = workload.DefaultSeed
	}

	if opts.Sync == "" {
		opts.Sync = SyncFull
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		opts:   opts,
		logger: logger,
	}
}

// Run executes v with p and returns the timed interval. Fixture and cleanup
// work are excluded; the final flush is included. Any I/O error aborts the
// run immediately and leaves the scratch state as it was.
func (e *Engine) Run(ctx context.Context, v Variant, p Params) (time.Duration, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(e.opts.ScratchDir, 0o755); err != nil {
		return 0, fmt.Errorf("create scratch dir %s: %w", e.opts.ScratchDir, err)
	}

	layout := workload.NewLayout(p.Size, p.BlockSize)
	path := v.Path(e.opts.ScratchDir, p)
	logger := e.logger.With(
		slog.String("mode", v.Name),
		slog.String("path", path),
	)

	st := newStore(v.Style, path, e.opts.Sync)
	defer st.close()

	buf := make([]byte, min(uint64(p.BlockSize), max(p.Size, 1)))

	var (
		fixtureGen *workload.Xorshift64
		states     []uint64
		err        error
	)

	switch {
	case v.Op != Write:
		fixtureGen, states, err = e.populate(st, layout, buf, v.Order == workload.Reversed)
		if err != nil {
			return 0, fmt.Errorf("fixture: %w", err)
		}

		logger.DebugContext(ctx, "fixture written",
			slog.Uint64("blocks", layout.Blocks()),
		)
	case v.Order == workload.Reversed:
		states = workload.Checkpoints(e.opts.Seed, layout)
	}

	if v.Op == Read && e.opts.DropCache {
		if err := st.evict(layout.Blocks()); err != nil {
			return 0, err
		}
	}

	if err := st.open(phaseFor(v.Op), v.Order == workload.InOrder); err != nil {
		return 0, err
	}

	// Ordered passes restart the stream so updates reproduce the fixture.
	// Random passes keep drawing from where the fixture stopped.
	gen := workload.NewXorshift64(e.opts.Seed)
	if v.Order == workload.Random && fixtureGen != nil {
		gen = fixtureGen
	}

	offsets := workload.NewOffsets(layout, v.Order, gen)

	var content workload.Content = workload.Sequential{Gen: gen}
	if v.Order == workload.Reversed {
		content = workload.Checkpointed{States: states}
	}

	elapsed, err := measure(st, v.Op, layout, offsets, content, buf, e.visit)
	if err != nil {
		return 0, err
	}

	if err := st.close(); err != nil {
		return 0, err
	}

	if e.inspect != nil {
		e.inspect(path)
	}

	if err := st.cleanup(layout.Blocks()); err != nil {
		return 0, err
	}

	logger.InfoContext(ctx, "variant finished",
		slog.Uint64("size", p.Size),
		slog.Int("block_size", p.BlockSize),
		slog.Uint64("run", uint64(p.Run)),
		slog.Duration("runtime", elapsed),
	)

	return elapsed, nil
}

// measure is the timed phase: one pass over offsets followed by a flush.
func measure(
	st store,
	op Op,
	layout workload.Layout,
	offsets *workload.Offsets,
	content workload.Content,
	buf []byte,
	visit func(i uint64),
) (time.Duration, error) {
	start := time.Now()

	for {
		i, ok := offsets.Next()
		if !ok {
			break
		}

		if visit != nil {
			visit(i)
		}

		chunk := buf[:layout.Len(i)]
		off := layout.Offset(i)

		var err error
		if op == Read {
			err = st.read(i, off, blackBox(chunk))
		} else {
			content.Fill(chunk, i)
			err = st.write(i, off, blackBox(chunk))
		}

		if err != nil {
			return 0, err
		}
	}

	if err := st.flush(); err != nil {
		return 0, err
	}

	elapsed := time.Since(start)
	blackBox(buf)

	return elapsed, nil
}

// populate writes the full stream in order so update and read phases start
// from deterministic content. It returns the generator positioned after the
// fixture and, with record set, the generator state at the first byte of
// every block.
func (e *Engine) populate(
	st store,
	layout workload.Layout,
	buf []byte,
	record bool,
) (*workload.Xorshift64, []uint64, error) {
	if err := st.open(phaseFixture, true); err != nil {
		return nil, nil, err
	}

	gen := workload.NewXorshift64(e.opts.Seed)

	var states []uint64
	if record {
		states = make([]uint64, layout.Blocks())
	}

	for i := uint64(0); i < layout.Blocks(); i++ {
		if states != nil {
			states[i] = gen.State()
		}

		chunk := buf[:layout.Len(i)]
		gen.Fill(chunk)

		if err := st.write(i, layout.Offset(i), chunk); err != nil {
			return nil, nil, err
		}
	}

	if err := st.flush(); err != nil {
		return nil, nil, err
	}

	if err := st.close(); err != nil {
		return nil, nil, err
	}

	return gen, states, nil
}
