package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Defaults for the CLI's --log-file.
const (
	DefaultMaxSize    = 10 << 20
	DefaultMaxBackups = 3
)

// ErrFileClosed is returned by Write after Close.
var ErrFileClosed = errors.New("log: file closed")

// RotatingFile is an io.WriteCloser that renames path to path.1 (shifting
// older backups up to path.N) once a write would grow it past maxSize.
type RotatingFile struct {
	mu sync.Mutex

	path       string
	maxSize    int64
	maxBackups int

	file   *os.File
	size   int64
	closed bool
}

// NewRotatingFile opens path for appending. A maxSize of zero or less uses
// DefaultMaxSize. With maxBackups zero the file is truncated on rotation.
func NewRotatingFile(path string, maxSize int64, maxBackups int) (*RotatingFile, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxBackups < 0 {
		maxBackups = 0
	}
	rf := &RotatingFile{
		path:       path,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(rf.path), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	// Audit events can name users and hosts; owner-only.
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	rf.file = f
	rf.size = info.Size()
	return nil
}

// Write implements io.Writer. A single write larger than maxSize is
// written whole into a fresh file.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.closed {
		return 0, ErrFileClosed
	}
	if rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize {
		if err := rf.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// rotate must be called with mu held.
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return err
	}
	rf.file = nil

	if rf.maxBackups == 0 {
		if err := os.Truncate(rf.path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return rf.open()
	}

	oldest := backupName(rf.path, rf.maxBackups)
	if err := os.Remove(oldest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", oldest, err)
	}
	for i := rf.maxBackups - 1; i >= 1; i-- {
		from, to := backupName(rf.path, i), backupName(rf.path, i+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rename %s: %w", from, err)
		}
	}
	if err := os.Rename(rf.path, backupName(rf.path, 1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rename %s: %w", rf.path, err)
	}
	return rf.open()
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// Close implements io.Closer.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.closed {
		return nil
	}
	rf.closed = true
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
