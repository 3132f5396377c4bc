// Package harness persists benchmark results and drives fsbench child
// processes across a sweep of parameters.
package harness

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/weiihann/fsbench/bench"
)

// Result is the record written once per benchmark invocation.
type Result struct {
	Name      string  `json:"name"`
	Size      uint64  `json:"size"`
	BlockSize int     `json:"block_size"`
	Run       uint32  `json:"run"`
	Runtime   float64 `json:"runtime"`
}

// NewResult builds the record for one finished variant.
func NewResult(mode string, p bench.Params, d time.Duration) Result {
	return Result{
		Name:      mode,
		Size:      p.Size,
		BlockSize: p.BlockSize,
		Run:       p.Run,
		Runtime:   d.Seconds(),
	}
}

// Duration returns the runtime as a time.Duration.
func (r Result) Duration() time.Duration {
	return time.Duration(math.Round(r.Runtime * float64(time.Second)))
}

// ResultPath returns where the record for the given invocation lives.
func ResultPath(dir, mode string, p bench.Params) string {
	return filepath.Join(dir, fmt.Sprintf("result_%s_%d_%d_%d.json",
		mode, p.Size, p.BlockSize, p.Run))
}

// WriteResult persists r into dir and returns the file path. The directory
// must already exist.
func WriteResult(dir string, r Result) (string, error) {
	path := ResultPath(dir, r.Name, bench.Params{
		Size:      r.Size,
		BlockSize: r.BlockSize,
		Run:       r.Run,
	})

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result %s: %w", path, err)
	}

	return path, nil
}

// ReadResult loads a single record.
func ReadResult(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result %s: %w", path, err)
	}
	defer f.Close()

	var r Result
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &r, nil
}
