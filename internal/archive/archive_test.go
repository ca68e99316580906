package archive

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/passportctl/internal/testutil/testlog"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestFileName(t *testing.T) {
	testlog.Start(t)
	ts := time.Date(2026, 3, 9, 7, 5, 4, 0, time.UTC)
	if got := FileName(ts); got != "passport_log_20260309_070504.dmp" {
		t.Fatalf("unexpected file name: %q", got)
	}
}

func TestWriterAppendsAndSyncsLines(t *testing.T) {
	testlog.Start(t)
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w, err := Open(dir, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, line := range []string{"03:04:05 OPEN part.nc", "03:04:06 --- DATABEGIN ---"} {
		if err := w.WriteLine(line); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
	}
	if w.Lines() != 2 {
		t.Fatalf("unexpected line count: %d", w.Lines())
	}

	// Lines must be on disk before Close.
	if got := readFile(t, w.Path()); got != "03:04:05 OPEN part.nc\n03:04:06 --- DATABEGIN ---\n" {
		t.Fatalf("unexpected file contents: %q", got)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.WriteLine("late"); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("expected ErrWriterClosed, got %v", err)
	}
	if !strings.HasSuffix(w.Path(), "passport_log_20260102_030405.dmp") {
		t.Fatalf("unexpected path: %q", w.Path())
	}
}

func TestOpenSameSecondAppends(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var path string
	for _, line := range []string{"first", "second"} {
		w, err := Open(dir, ts)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := w.WriteLine(line); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		path = w.Path()
	}
	if got := readFile(t, path); got != "first\nsecond\n" {
		t.Fatalf("unexpected file contents: %q", got)
	}
}

func TestGuardCheck(t *testing.T) {
	testlog.Start(t)
	var probed string
	g := &Guard{Dir: "/logs", MinFreeMB: 5, Free: func(path string) (uint64, error) {
		probed = path
		return 6 * bytesPerMB, nil
	}}
	freeMB, err := g.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if probed != "/logs" || math.Abs(freeMB-6) > 0.001 {
		t.Fatalf("unexpected probe path=%q free=%v", probed, freeMB)
	}

	g.Free = func(string) (uint64, error) { return 4 * bytesPerMB, nil }
	freeMB, err = g.Check()
	if !errors.Is(err, ErrDiskSpaceLow) {
		t.Fatalf("expected ErrDiskSpaceLow, got %v", err)
	}
	if math.Abs(freeMB-4) > 0.001 {
		t.Fatalf("unexpected free space: %v", freeMB)
	}
}

func TestGuardProbeError(t *testing.T) {
	testlog.Start(t)
	probeErr := errors.New("statfs: no such device")
	g := &Guard{Dir: "/missing", MinFreeMB: 1, Free: func(string) (uint64, error) { return 0, probeErr }}
	_, err := g.Check()
	if !errors.Is(err, probeErr) || errors.Is(err, ErrDiskSpaceLow) {
		t.Fatalf("expected probe error only, got %v", err)
	}
}

func TestFreeBytesOnTempDir(t *testing.T) {
	testlog.Start(t)
	b, err := FreeBytes(t.TempDir())
	if err != nil {
		t.Fatalf("free bytes: %v", err)
	}
	if b == 0 {
		t.Fatalf("expected free space on temp dir")
	}
	if _, err := NewGuard(t.TempDir(), 0).Check(); err != nil {
		t.Fatalf("guard check: %v", err)
	}
}
