package runtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/loqa-scribe/internal/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syncWriter guards a builder shared by the display and the controls.
type syncWriter struct {
	mu sync.Mutex
	b  *strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.HTTP.Enabled = false
	cfg.Display.ANSI = false
	cfg.STT.MockIntervalMS = 0
	cfg.Export.Directory = t.TempDir()
	return cfg
}

func TestHandleReady(t *testing.T) {
	rt := New(config.Default(), newTestLogger())

	rec := httptest.NewRecorder()
	rt.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before start, got %d", rec.Code)
	}

	rt.ready.Store(true)
	rec = httptest.NewRecorder()
	rt.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("expected ready, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	rt.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}

func TestStartRunsCommandsUntilQuit(t *testing.T) {
	cfg := testConfig(t)
	in := strings.NewReader("t\nt\nd\nq\n")
	var out strings.Builder
	rt := New(cfg, newTestLogger(), WithIO(in, &syncWriter{b: &out}))

	done := make(chan error, 1)
	go func() { done <- rt.Start(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not stop after quit")
	}

	matches, err := filepath.Glob(filepath.Join(cfg.Export.Directory, "transcripts_*.txt"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one export file, got %v", matches)
	}
	if _, err := os.Stat(matches[0]); err != nil {
		t.Fatalf("stat export: %v", err)
	}
}

func TestStartWithoutRecognizerStillServes(t *testing.T) {
	cfg := testConfig(t)
	cfg.STT.Enabled = false
	cfg.Controls.Stdin = false
	rt := New(cfg, newTestLogger(), WithIO(strings.NewReader(""), io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !rt.ready.Load() {
		if time.Now().After(deadline) {
			t.Fatal("runtime never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}
}

func TestSetupTelemetryServesMetrics(t *testing.T) {
	shutdown, handler, err := setupTelemetry(config.Default(), newTestLogger())
	if err != nil {
		t.Fatalf("setup telemetry: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	if handler == nil {
		t.Fatal("expected a metrics handler")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected go collector output in /metrics")
	}
}
