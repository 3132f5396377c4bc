// Package report summarises benchmark results into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/weiihann/fsbench/harness"
)

// Summary aggregates the runs of one (mode, size, block size) cell.
type Summary struct {
	Name      string        `json:"name"`
	Size      uint64        `json:"size"`
	BlockSize int           `json:"block_size"`
	Runs      int           `json:"runs"`
	Mean      time.Duration `json:"mean_ns"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
	// Relative is Mean divided by the fastest mean among modes with the
	// same size and block size.
	Relative float64 `json:"relative"`
}

// Throughput returns bytes per second at the mean runtime, or 0 when the
// runtime is zero.
func (s Summary) Throughput() float64 {
	if s.Mean <= 0 {
		return 0
	}

	return float64(s.Size) / s.Mean.Seconds()
}

type cellKey struct {
	size  uint64
	block int
	name  string
}

// Summarize groups results by mode, size and block size. Output is ordered
// by size, block size, then mode.
func Summarize(results []harness.Result) []Summary {
	cells := make(map[cellKey]*Summary)

	for _, r := range results {
		k := cellKey{size: r.Size, block: r.BlockSize, name: r.Name}
		d := r.Duration()

		s, ok := cells[k]
		if !ok {
			s = &Summary{
				Name:      r.Name,
				Size:      r.Size,
				BlockSize: r.BlockSize,
				Min:       time.Duration(math.MaxInt64),
			}
			cells[k] = s
		}

		s.Runs++
		s.Mean += d
		s.Min = min(s.Min, d)
		s.Max = max(s.Max, d)
	}

	out := make([]Summary, 0, len(cells))
	for _, s := range cells {
		s.Mean /= time.Duration(s.Runs)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		if a.BlockSize != b.BlockSize {
			return a.BlockSize < b.BlockSize
		}

		return a.Name < b.Name
	})

	fastest := findFastest(out)
	for i := range out {
		f := fastest[cellKey{size: out[i].Size, block: out[i].BlockSize}]

		out[i].Relative = 1.0
		if f > 0 && out[i].Mean > 0 {
			out[i].Relative = float64(out[i].Mean) / float64(f)
		}
	}

	return out
}

// Generate writes a markdown comparison table for the given results.
func Generate(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	summaries := Summarize(results)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Mode | Size | Block | Runs | Mean | Min "+
		"| Max | Throughput | Relative |")
	fmt.Fprintln(w, "|------|------|-------|------|------|-----"+
		"|-----|------------|----------|")

	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s | %s | %.2fx |\n",
			s.Name,
			formatBytes(s.Size),
			formatBytes(uint64(s.BlockSize)),
			s.Runs,
			formatDuration(s.Mean),
			formatDuration(s.Min),
			formatDuration(s.Max),
			formatThroughput(s.Throughput()),
			s.Relative,
		)
	}

	return nil
}

// GenerateJSON writes the per-cell summaries as JSON to w.
func GenerateJSON(w io.Writer, results []harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(Summarize(results))
}

func findFastest(summaries []Summary) map[cellKey]time.Duration {
	fastest := make(map[cellKey]time.Duration)

	for _, s := range summaries {
		if s.Mean <= 0 {
			continue
		}

		k := cellKey{size: s.Size, block: s.BlockSize}
		if cur, ok := fastest[k]; !ok || s.Mean < cur {
			fastest[k] = s.Mean
		}
	}

	return fastest
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	return humanize.IBytes(b)
}

func formatThroughput(bps float64) string {
	if bps <= 0 {
		return "-"
	}

	return humanize.IBytes(uint64(bps)) + "/s"
}
