//go:build !linux

package bench

import "os"

func datasync(f *os.File) error {
	return f.Sync()
}

func evict(f *os.File) error {
	return f.Sync()
}
