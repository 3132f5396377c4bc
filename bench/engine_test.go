package bench

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/fsbench/workload"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()

	if opts.ScratchDir == "" {
		opts.ScratchDir = t.TempDir()
	}

	return NewEngine(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// readTarget returns the bytes a variant left at path: the file itself, or
// the concatenation of block files for small-file variants.
func readTarget(t *testing.T, v Variant, path string, layout workload.Layout) []byte {
	t.Helper()

	if v.Style != SmallFiles {
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		return data
	}

	var out []byte
	for i := uint64(0); i < layout.Blocks(); i++ {
		data, err := os.ReadFile(filepath.Join(path, BlockFileName(i)))
		require.NoError(t, err)
		out = append(out, data...)
	}

	return out
}

func mustLookup(t *testing.T, name string) Variant {
	t.Helper()

	v, err := Lookup(name)
	require.NoError(t, err)

	return v
}

func TestWriteInorderScenario(t *testing.T) {
	e := newTestEngine(t, Options{})
	v := mustLookup(t, "write_inorder")
	p := Params{Size: 1024, BlockSize: 256, Run: 0}

	var sizeBeforeCleanup int64 = -1
	e.inspect = func(path string) {
		info, err := os.Stat(path)
		require.NoError(t, err)
		sizeBeforeCleanup = info.Size()
	}

	d, err := e.Run(context.Background(), v, p)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Equal(t, int64(1024), sizeBeforeCleanup)

	path := filepath.Join(e.opts.ScratchDir, "write_inorder_1024_256_0.txt")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "file should be truncated after the run")
}

func TestSmallReadRandomScenario(t *testing.T) {
	e := newTestEngine(t, Options{})
	v := mustLookup(t, "small_read_random")
	p := Params{Size: 512, BlockSize: 128}

	dir := filepath.Join(e.opts.ScratchDir, "small_write_random_512_128_0")
	want := []string{"000000000.txt", "000000001.txt", "000000002.txt", "000000003.txt"}

	inspected := false
	e.inspect = func(path string) {
		inspected = true
		assert.Equal(t, dir, path)

		entries, err := os.ReadDir(path)
		require.NoError(t, err)
		require.Len(t, entries, len(want))

		for i, entry := range entries {
			assert.Equal(t, want[i], entry.Name())

			info, err := entry.Info()
			require.NoError(t, err)
			assert.Equal(t, int64(128), info.Size())
		}
	}

	_, err := e.Run(context.Background(), v, p)
	require.NoError(t, err)
	require.True(t, inspected)

	for _, name := range want {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Zero(t, info.Size(), "%s should be truncated", name)
	}
}

func TestContentMatchesStreamForOrderedVariants(t *testing.T) {
	// 1000 is not a multiple of 96, so the final block is short.
	p := Params{Size: 1000, BlockSize: 96}
	layout := workload.NewLayout(p.Size, p.BlockSize)
	want := workload.Expected(workload.DefaultSeed, p.Size)

	for _, name := range Names() {
		v := mustLookup(t, name)
		if v.Order == workload.Random {
			continue
		}

		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Options{})

			var got []byte
			e.inspect = func(path string) {
				got = readTarget(t, v, path, layout)
			}

			_, err := e.Run(context.Background(), v, p)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

// simulateRandom replays a random pass the way the engine draws it: one
// index draw, then the block's content draws, on a single stream.
func simulateRandom(base []byte, layout workload.Layout, gen *workload.Xorshift64) ([]byte, uint64) {
	out := append([]byte(nil), base...)
	if uint64(len(out)) < layout.Total {
		out = append(out, make([]byte, layout.Total-uint64(len(out)))...)
	}

	offsets := workload.NewOffsets(layout, workload.Random, gen)

	var end uint64
	for {
		i, ok := offsets.Next()
		if !ok {
			break
		}

		off := layout.Offset(i)
		n := uint64(layout.Len(i))
		gen.Fill(out[off : off+n])
		end = max(end, off+n)
	}

	return out, end
}

func TestRandomWriteInterleavesDraws(t *testing.T) {
	p := Params{Size: 4000, BlockSize: 256}
	layout := workload.NewLayout(p.Size, p.BlockSize)

	for _, name := range []string{"write_random", "buffered_write_random", "incremental_write_random"} {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Options{})
			v := mustLookup(t, name)

			var got []byte
			e.inspect = func(path string) {
				got = readTarget(t, v, path, layout)
			}

			_, err := e.Run(context.Background(), v, p)
			require.NoError(t, err)

			want, end := simulateRandom(nil, layout, workload.NewXorshift64(workload.DefaultSeed))
			assert.Equal(t, want[:end], got)
		})
	}
}

func TestRandomUpdateOverlaysFixture(t *testing.T) {
	p := Params{Size: 3000, BlockSize: 200}
	layout := workload.NewLayout(p.Size, p.BlockSize)
	fixture := workload.Expected(workload.DefaultSeed, p.Size)

	for _, name := range []string{"update_random", "small_update_random"} {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Options{})
			v := mustLookup(t, name)

			var got []byte
			e.inspect = func(path string) {
				got = readTarget(t, v, path, layout)
			}

			_, err := e.Run(context.Background(), v, p)
			require.NoError(t, err)

			// The timed pass continues the stream right after the
			// fixture's bytes.
			gen := workload.NewXorshift64(workload.DefaultSeed)
			gen.Skip(p.Size)

			want, _ := simulateRandom(fixture, layout, gen)
			assert.Equal(t, want, got)

			restarted, _ := simulateRandom(fixture, layout, workload.NewXorshift64(workload.DefaultSeed))
			assert.NotEqual(t, restarted, got)
		})
	}
}

func TestRandomReadContinuesFixtureStream(t *testing.T) {
	p := Params{Size: 3000, BlockSize: 200}
	layout := workload.NewLayout(p.Size, p.BlockSize)

	gen := workload.NewXorshift64(workload.DefaultSeed)
	gen.Skip(p.Size)

	want := make([]uint64, 0, layout.Blocks())
	for range layout.Blocks() {
		want = append(want, gen.Next()%layout.Blocks())
	}

	for _, name := range []string{"read_random", "buffered_read_random", "incremental_read_random", "small_read_random"} {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Options{})

			var got []uint64
			e.visit = func(i uint64) {
				got = append(got, i)
			}

			_, err := e.Run(context.Background(), mustLookup(t, name), p)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestBlockLargerThanSize(t *testing.T) {
	e := newTestEngine(t, Options{})
	v := mustLookup(t, "write_inorder")
	p := Params{Size: 10, BlockSize: math.MaxInt32}
	layout := workload.NewLayout(p.Size, p.BlockSize)

	var got []byte
	e.inspect = func(path string) {
		got = readTarget(t, v, path, layout)
	}

	_, err := e.Run(context.Background(), v, p)
	require.NoError(t, err)
	assert.Equal(t, workload.Expected(workload.DefaultSeed, p.Size), got)
}

func TestSmallWriteRandomLeavesGaps(t *testing.T) {
	e := newTestEngine(t, Options{})
	v := mustLookup(t, "small_write_random")
	p := Params{Size: 64 * 16, BlockSize: 16}
	layout := workload.NewLayout(p.Size, p.BlockSize)

	var files []string
	e.inspect = func(path string) {
		entries, err := os.ReadDir(path)
		require.NoError(t, err)

		for _, entry := range entries {
			files = append(files, entry.Name())
		}
	}

	_, err := e.Run(context.Background(), v, p)
	require.NoError(t, err)

	gen := workload.NewXorshift64(workload.DefaultSeed)
	offsets := workload.NewOffsets(layout, workload.Random, gen)
	touched := map[string]bool{}

	for {
		i, ok := offsets.Next()
		if !ok {
			break
		}

		touched[BlockFileName(i)] = true
		gen.Skip(uint64(layout.Len(i)))
	}

	require.Less(t, len(touched), int(layout.Blocks()), "expected some blocks to be skipped")
	assert.Len(t, files, len(touched))

	for _, name := range files {
		assert.True(t, touched[name], "unexpected block file %s", name)
	}
}

func TestZeroSize(t *testing.T) {
	for _, name := range []string{"write_inorder", "read_random", "small_update_reversed"} {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Options{})

			d, err := e.Run(context.Background(), mustLookup(t, name), Params{Size: 0, BlockSize: 512})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, int64(d), int64(0))
		})
	}
}

func TestSyncModes(t *testing.T) {
	for _, mode := range []SyncMode{SyncFull, SyncData, SyncNone} {
		t.Run(string(mode), func(t *testing.T) {
			e := newTestEngine(t, Options{Sync: mode})

			for _, name := range []string{"write_reversed", "buffered_update_inorder", "small_write_inorder"} {
				_, err := e.Run(context.Background(), mustLookup(t, name), Params{Size: 2048, BlockSize: 300})
				require.NoError(t, err, name)
			}
		})
	}
}

func TestDropCacheRead(t *testing.T) {
	e := newTestEngine(t, Options{DropCache: true})

	for _, name := range []string{"read_inorder", "small_read_reversed"} {
		_, err := e.Run(context.Background(), mustLookup(t, name), Params{Size: 4096, BlockSize: 512})
		require.NoError(t, err, name)
	}
}

func TestInvalidBlockSizeTouchesNothing(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "scratch")
	e := newTestEngine(t, Options{ScratchDir: scratch})

	_, err := e.Run(context.Background(), mustLookup(t, "write_inorder"), Params{Size: 1024})

	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr), "scratch dir should not exist")
}

func TestScratchErrorIsFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	e := newTestEngine(t, Options{ScratchDir: filepath.Join(blocker, "scratch")})

	_, err := e.Run(context.Background(), mustLookup(t, "read_inorder"), Params{Size: 1024, BlockSize: 256})
	require.Error(t, err)
}

func TestReadPastEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	for _, style := range []Style{Direct, Buffered, Incremental} {
		st := newStore(style, path, SyncNone)
		require.NoError(t, st.open(phaseRead, false))

		buf := make([]byte, 64)
		require.NoError(t, st.read(0, 0, buf))
		require.Error(t, st.read(1, 64, buf), "style %d", style)
		require.NoError(t, st.close())
	}
}
