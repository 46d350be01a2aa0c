package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileBufferSize = 1 << 20

// File writes frames to a raw .bin file.
type File struct {
	path string

	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	written int64
	closed  bool
}

// CreateFile creates (or truncates) path. The parent directory must exist.
func CreateFile(path string) (*File, error) {
	if _, name := filepath.Split(path); name == "" {
		return nil, fmt.Errorf("sink: no file name given in %q", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("sink: output directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("sink: %q is not a directory", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to create %s: %w", path, err)
	}
	return &File{
		path: path,
		f:    f,
		w:    bufio.NewWriterSize(f, fileBufferSize),
	}, nil
}

// Write implements io.Writer.
func (s *File) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, os.ErrClosed
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

// Written returns the number of bytes accepted so far.
func (s *File) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Path returns the file path.
func (s *File) Path() string {
	return s.path
}

// Close flushes buffered frames and closes the file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.w.Flush(), s.f.Close())
}
