package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/weiihann/fsbench/harness"
)

// resultSchema describes a single result record.
var resultSchema = map[string]any{
	"type":                 "object",
	"required":             []string{"name", "size", "block_size", "run", "runtime"},
	"additionalProperties": false,
	"properties": map[string]any{
		"name":       map[string]any{"type": "string", "minLength": 1},
		"size":       map[string]any{"type": "integer", "minimum": 0},
		"block_size": map[string]any{"type": "integer", "minimum": 1},
		"run":        map[string]any{"type": "integer", "minimum": 0},
		"runtime":    map[string]any{"type": "number", "minimum": 0},
	},
}

// ValidateRecord checks raw JSON against the result record schema.
func ValidateRecord(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(resultSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}

	return fmt.Errorf("invalid result record: %s", strings.Join(errs, ", "))
}

// Load reads every result_*.json in dir, validating each record. Results
// are sorted by size, then mode, block size and run.
func Load(dir string) ([]harness.Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "result_*.json"))
	if err != nil {
		return nil, fmt.Errorf("list results in %s: %w", dir, err)
	}

	results := make([]harness.Result, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		if err := ValidateRecord(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		var r harness.Result
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		results = append(results, r)
	}

	harness.SortResults(results)

	return results, nil
}

// Aggregate writes results as a single JSON array, the combined form of a
// results directory.
func Aggregate(w io.Writer, results []harness.Result) error {
	if results == nil {
		results = []harness.Result{}
	}

	return json.NewEncoder(w).Encode(results)
}
