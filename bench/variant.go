// Package bench runs filesystem micro-benchmarks. Every benchmark variant is
// one (operation, order, style) combination executed by a single engine that
// separates untimed fixture and cleanup work from the timed I/O loop.
package bench

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/weiihann/fsbench/workload"
)

// Op is the filesystem operation a variant measures.
type Op int

const (
	Write Op = iota
	Update
	Read
)

func (o Op) String() string {
	switch o {
	case Write:
		return "write"
	case Update:
		return "update"
	case Read:
		return "read"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Style is how a variant lays its blocks out on the filesystem and how it
// issues I/O against them.
type Style int

const (
	// Direct uses one large file with one unbuffered call per block.
	Direct Style = iota
	// Buffered uses one large file behind a userspace buffer.
	Buffered
	// Incremental uses one large file reopened for every block.
	Incremental
	// SmallFiles uses a directory holding one file per block.
	SmallFiles
)

// Prefix returns the registry name prefix for the style.
func (s Style) Prefix() string {
	switch s {
	case Buffered:
		return "buffered_"
	case Incremental:
		return "incremental_"
	case SmallFiles:
		return "small_"
	default:
		return ""
	}
}

// Variant is one registered benchmark.
type Variant struct {
	Name  string
	Op    Op
	Order workload.Order
	Style Style
}

// Params are the per-invocation benchmark parameters.
type Params struct {
	Size      uint64
	BlockSize int
	Run       uint32
}

// Validate reports parameters the engine cannot execute.
func (p Params) Validate() error {
	if p.BlockSize <= 0 {
		return &UsageError{Err: fmt.Errorf("block_size must be positive, got %d", p.BlockSize)}
	}

	return nil
}

// Path returns the file (or, for small files, the directory) the variant
// operates on. Identical parameters always map to the same path.
func (v Variant) Path(scratch string, p Params) string {
	if v.Style == SmallFiles {
		// Every small-file operation shares the write variant's directory.
		return filepath.Join(scratch, fmt.Sprintf("small_write_%s_%d_%d_%d",
			v.Order, p.Size, p.BlockSize, p.Run))
	}

	return filepath.Join(scratch, fmt.Sprintf("%s_%d_%d_%d.txt",
		v.Name, p.Size, p.BlockSize, p.Run))
}

// BlockFileName is the name of block i inside a small-file directory.
func BlockFileName(i uint64) string {
	return fmt.Sprintf("%09x.txt", i)
}

// ErrUnknownMode is wrapped by the error Lookup returns for unregistered
// names.
var ErrUnknownMode = errors.New("unknown mode")

// UsageError is an invocation problem detected before any filesystem
// activity.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}
