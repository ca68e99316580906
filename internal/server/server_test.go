package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/passportctl/internal/collector"
	"github.com/danmuck/passportctl/internal/observability"
	"github.com/danmuck/passportctl/internal/protocol/packet"
	"github.com/danmuck/passportctl/internal/testutil/testlog"
)

type fakeSource struct {
	status collector.Status
}

func (f fakeSource) Status() collector.Status {
	return f.status
}

func (f fakeSource) Signals() packet.SignalTable {
	return packet.NewSignalTable(map[uint16]string{7: "feed hold"})
}

func newTestServer(t *testing.T, origins ...string) *Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	return New(fakeSource{status: collector.Status{
		Address:          "127.0.0.1:23321",
		Connected:        true,
		SessionID:        "4f1c1a52-6d7e-4a3e-9b0c-0d5e3c1b2a10",
		Packets:          12,
		Keepalives:       3,
		KeepaliveCounter: 3,
	}}, origins)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["connected"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var st collector.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Connected || st.Packets != 12 || st.KeepaliveCounter != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestSignals(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/signals", nil))
	var list []packet.Signal
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 5 || list[4].ID != 7 || list[4].Name != "feed hold" {
		t.Fatalf("unexpected signals: %+v", list)
	}
}

func TestMetricsExposed(t *testing.T) {
	s := newTestServer(t)
	observability.RecordConnectAttempt("ok")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "passport_collector_connect_attempts_total") {
		t.Fatalf("metrics missing collector counter")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	s := newTestServer(t, "http://localhost:3000", " ")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, addr)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
