package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileSink writes reports to a single path, holding a cross-process file
// lock for the duration of each write so concurrent engine processes
// sharing one report file never interleave.
type FileSink struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report: sink path is required")
	}
	return &FileSink{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Write replaces the report file's contents atomically: the data lands in a
// temp file first and is renamed into place under the lock.
func (s *FileSink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("report: acquiring file lock: %w", err)
	}
	defer s.lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".report-*")
	if err != nil {
		return fmt.Errorf("report: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("report: writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("report: replacing %s: %w", s.path, err)
	}
	return nil
}

// Path returns the sink's destination.
func (s *FileSink) Path() string {
	return s.path
}
