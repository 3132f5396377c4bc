package bench

import (
	"fmt"
	"os"
	"runtime"
)

// SyncMode selects how written data is persisted at the end of a timed
// phase.
type SyncMode string

const (
	// SyncFull calls fsync.
	SyncFull SyncMode = "fsync"
	// SyncData calls fdatasync where available and fsync elsewhere.
	SyncData SyncMode = "fdatasync"
	// SyncNone only drains userspace buffers.
	SyncNone SyncMode = "none"
)

// ParseSyncMode validates a sync mode name.
func ParseSyncMode(s string) (SyncMode, error) {
	switch m := SyncMode(s); m {
	case SyncFull, SyncData, SyncNone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q (want fsync, fdatasync or none)", s)
	}
}

func syncFile(f *os.File, mode SyncMode) error {
	switch mode {
	case SyncNone:
		return nil
	case SyncData:
		return datasync(f)
	default:
		return f.Sync()
	}
}

// blackBox hands p across a call boundary the compiler cannot see through,
// so I/O on p is never treated as dead or hoisted.
//
//go:noinline
func blackBox(p []byte) []byte {
	runtime.KeepAlive(p)

	return p
}
