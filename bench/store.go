package bench

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// bufferSize is the userspace buffer used by Buffered variants.
const bufferSize = 8 << 10

type phase int

const (
	phaseFixture phase = iota
	phaseWrite
	phaseUpdate
	phaseRead
)

func phaseFor(op Op) phase {
	switch op {
	case Update:
		return phaseUpdate
	case Read:
		return phaseRead
	default:
		return phaseWrite
	}
}

// store is where a variant's blocks live. open and close bracket one pass;
// write, read and flush are the only calls made inside the timed interval.
type store interface {
	open(ph phase, sequential bool) error
	write(i, off uint64, p []byte) error
	read(i, off uint64, p []byte) error
	flush() error
	close() error
	evict(blocks uint64) error
	cleanup(blocks uint64) error
}

func newStore(style Style, path string, mode SyncMode) store {
	if style == SmallFiles {
		return &dirStore{dir: path, sync: mode}
	}

	return &fileStore{path: path, style: style, sync: mode}
}

// fileStore keeps every block in one large file.
type fileStore struct {
	path  string
	style Style
	sync  SyncMode

	f        *os.File
	bw       *bufio.Writer
	br       *bufio.Reader
	seek     bool
	writing  bool
	perBlock bool
	flag     int
}

func (s *fileStore) open(ph phase, sequential bool) error {
	s.seek = !sequential
	s.writing = ph != phaseRead

	var flag int

	switch ph {
	case phaseFixture, phaseWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		s.flag = os.O_WRONLY
	case phaseUpdate:
		flag = os.O_WRONLY
		s.flag = os.O_WRONLY
	case phaseRead:
		flag = os.O_RDONLY
		s.flag = os.O_RDONLY
	}

	f, err := os.OpenFile(s.path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	if s.style == Incremental && ph != phaseFixture {
		// Blocks reopen the file themselves; this handle only created or
		// truncated it.
		s.perBlock = true

		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", s.path, err)
		}

		return nil
	}

	s.perBlock = false
	s.f = f

	if s.style == Buffered && ph != phaseFixture {
		if s.writing {
			s.bw = bufio.NewWriterSize(f, bufferSize)
		} else {
			s.br = bufio.NewReaderSize(f, bufferSize)
		}
	}

	return nil
}

func (s *fileStore) write(_, off uint64, p []byte) error {
	if s.perBlock {
		return s.writeReopen(off, p)
	}

	if s.seek {
		if s.bw != nil {
			if err := s.bw.Flush(); err != nil {
				return fmt.Errorf("flush %s: %w", s.path, err)
			}
		}

		if _, err := s.f.Seek(int64(off), io.SeekStart); err != nil {
			return fmt.Errorf("seek %s to %d: %w", s.path, off, err)
		}
	}

	var err error
	if s.bw != nil {
		_, err = s.bw.Write(p)
	} else {
		_, err = s.f.Write(p)
	}

	if err != nil {
		return fmt.Errorf("write %s at %d: %w", s.path, off, err)
	}

	return nil
}

func (s *fileStore) writeReopen(off uint64, p []byte) error {
	f, err := os.OpenFile(s.path, s.flag, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(off), io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", s.path, off, err)
	}

	if _, err := f.Write(p); err != nil {
		return fmt.Errorf("write %s at %d: %w", s.path, off, err)
	}

	if err := syncFile(f, s.sync); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}

	return f.Close()
}

func (s *fileStore) read(_, off uint64, p []byte) error {
	if s.perBlock {
		return s.readReopen(off, p)
	}

	if s.seek {
		if _, err := s.f.Seek(int64(off), io.SeekStart); err != nil {
			return fmt.Errorf("seek %s to %d: %w", s.path, off, err)
		}

		if s.br != nil {
			s.br.Reset(s.f)
		}
	}

	var r io.Reader = s.f
	if s.br != nil {
		r = s.br
	}

	if _, err := io.ReadFull(r, p); err != nil {
		return fmt.Errorf("read %s at %d: %w", s.path, off, err)
	}

	return nil
}

func (s *fileStore) readReopen(off uint64, p []byte) error {
	f, err := os.OpenFile(s.path, s.flag, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(off), io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", s.path, off, err)
	}

	if _, err := io.ReadFull(f, p); err != nil {
		return fmt.Errorf("read %s at %d: %w", s.path, off, err)
	}

	return nil
}

func (s *fileStore) flush() error {
	if s.bw != nil {
		if err := s.bw.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", s.path, err)
		}
	}

	if s.f == nil || !s.writing {
		return nil
	}

	if err := syncFile(s.f, s.sync); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}

	return nil
}

func (s *fileStore) close() error {
	if s.f == nil {
		return nil
	}

	f := s.f
	s.f, s.bw, s.br = nil, nil, nil

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}

	return nil
}

func (s *fileStore) evict(uint64) error {
	return evictPath(s.path)
}

func (s *fileStore) cleanup(uint64) error {
	if err := os.Truncate(s.path, 0); err != nil {
		return fmt.Errorf("truncate %s: %w", s.path, err)
	}

	return nil
}

// dirStore keeps each block in its own file named by block index.
type dirStore struct {
	dir  string
	sync SyncMode
	flag int
}

func (s *dirStore) blockPath(i uint64) string {
	return filepath.Join(s.dir, BlockFileName(i))
}

func (s *dirStore) open(ph phase, _ bool) error {
	switch ph {
	case phaseFixture, phaseWrite:
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", s.dir, err)
		}

		// The storage layer may fix a file's capabilities when it is
		// created, so block files are always created readable.
		s.flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case phaseUpdate:
		s.flag = os.O_WRONLY
	case phaseRead:
		s.flag = os.O_RDONLY
	}

	return nil
}

func (s *dirStore) write(i, _ uint64, p []byte) error {
	path := s.blockPath(i)

	f, err := os.OpenFile(path, s.flag, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(p); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := syncFile(f, s.sync); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}

	return f.Close()
}

func (s *dirStore) read(i, _ uint64, p []byte) error {
	path := s.blockPath(i)

	f, err := os.OpenFile(path, s.flag, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.ReadFull(f, p); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

// Block files are synced as they are written.
func (s *dirStore) flush() error { return nil }

func (s *dirStore) close() error { return nil }

func (s *dirStore) evict(blocks uint64) error {
	for i := uint64(0); i < blocks; i++ {
		if err := evictPath(s.blockPath(i)); err != nil {
			return err
		}
	}

	return nil
}

func (s *dirStore) cleanup(blocks uint64) error {
	for i := uint64(0); i < blocks; i++ {
		path := s.blockPath(i)

		err := os.Truncate(path, 0)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("truncate %s: %w", path, err)
		}
	}

	return nil
}

func evictPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := evict(f); err != nil {
		return fmt.Errorf("evict %s: %w", path, err)
	}

	return nil
}
