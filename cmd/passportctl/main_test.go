package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/passportctl/internal/protocol/frame"
	"github.com/danmuck/passportctl/internal/protocol/packet"
	"github.com/danmuck/passportctl/internal/testutil/testlog"
)

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExampleConfigLoads(t *testing.T) {
	testlog.Start(t)
	out, _, err := executeRoot(t, "config", "check", "--config", "ex.config.toml")
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "192.168.0.201:23321") || !strings.Contains(out, "local/passport") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	testlog.Start(t)
	out, _, err := executeRoot(t, "config", "check", "--config", "ex.config.toml", "--host", "10.1.1.9", "--port", "4000")
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "10.1.1.9:4000") {
		t.Fatalf("flags did not override config: %q", out)
	}

	if _, _, err := executeRoot(t, "config", "check", "--port", "0"); err == nil {
		t.Fatalf("expected invalid port to fail")
	}
}

func TestSignalsCommand(t *testing.T) {
	testlog.Start(t)
	out, _, err := executeRoot(t, "signals", "--config", "ex.config.toml")
	if err != nil {
		t.Fatalf("signals: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("unexpected signal count: %q", out)
	}
	if !strings.Contains(lines[0], "CNC reset") || !strings.Contains(lines[5], "spindle override") {
		t.Fatalf("unexpected signals: %q", out)
	}
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "passport.toml")
	if _, _, err := executeRoot(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, _, err := executeRoot(t, "config", "init", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, _, err := executeRoot(t, "config", "init", "--force", path); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
	if _, _, err := executeRoot(t, "config", "check", "--config", path); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
}

func encodeFrame(t *testing.T, typ uint16, ts uint32, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := frame.WriteFrame(&buf, frame.Frame{Header: frame.Header{Type: typ, Timestamp: ts}, Payload: payload}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	return buf.Bytes()
}

func TestReplayDecodesCapture(t *testing.T) {
	testlog.Start(t)
	ts := uint32(time.Date(2024, 3, 1, 8, 30, 0, 0, time.Local).Unix())
	dataPayload := make([]byte, 10)
	binary.LittleEndian.PutUint16(dataPayload[2:], 3)
	copy(dataPayload[6:], "AUTO")

	var capture bytes.Buffer
	capture.Write(encodeFrame(t, uint16(packet.KindOpen), ts, append([]byte{0, 0}, "part.nc"...)))
	capture.Write(encodeFrame(t, frame.TypeKeepalive, ts, nil))
	capture.Write(encodeFrame(t, uint16(packet.KindData), ts, dataPayload))
	capture.Write(encodeFrame(t, uint16(packet.KindDataEnd), ts, []byte{0, 0}))

	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, capture.Bytes(), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	var out bytes.Buffer
	stats, err := replayFile(path, packet.NewDecoder(packet.DefaultSignals()), frame.DefaultLimits(), &out)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if stats.Packets != 3 || stats.Keepalives != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	want := "08:30:00 OPEN part.nc\n08:30:00 DATA 3 CNC ready = AUTO\n08:30:00 --- DATAEND ---\n"
	if out.String() != want {
		t.Fatalf("unexpected replay output:\n%s", out.String())
	}
}

func TestReplayReportsTruncatedCapture(t *testing.T) {
	testlog.Start(t)
	full := encodeFrame(t, uint16(packet.KindEvent), 0, append([]byte{0, 0}, "alarm"...))
	var out bytes.Buffer
	stats, err := replay(bytes.NewReader(full[:len(full)-2]), packet.NewDecoder(packet.DefaultSignals()), frame.DefaultLimits(), &out)
	if !errors.Is(err, frame.ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if stats.Packets != 0 || out.Len() != 0 {
		t.Fatalf("unexpected output for truncated capture: %+v %q", stats, out.String())
	}
}
