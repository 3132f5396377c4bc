//go:build linux

package bench

import (
	"os"

	"golang.org/x/sys/unix"
)

func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

// evict writes back and drops the page cache for f so a following read
// phase hits the storage layer.
func evict(f *os.File) error {
	if err := f.Sync(); err != nil {
		return err
	}

	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
