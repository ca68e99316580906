package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	filePrefix = "passport_log_"
	fileSuffix = ".dmp"
	fileLayout = "20060102_150405"
)

var ErrWriterClosed = errors.New("archive: writer closed")

// FileName returns the session log name for a session started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(fileLayout) + fileSuffix
}

// Writer appends lines to one session log and syncs after every line.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	lines uint64
}

// Open creates dir if needed and opens the session log for a session started
// at startedAt. An existing file with the same name is appended to.
func Open(dir string, startedAt time.Time) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName(startedAt))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archive: open session log: %w", err)
	}
	return &Writer{file: f, path: path}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Lines returns how many lines have been durably written.
func (w *Writer) Lines() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ErrWriterClosed
	}
	if _, err := w.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("archive: write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("archive: sync: %w", err)
	}
	w.lines++
	return nil
}

// Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
