package controls

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeSession struct {
	toggles int
	clears  int
	exports int
	failing bool
}

func (f *fakeSession) ToggleRecording() bool {
	f.toggles++
	return f.toggles%2 == 1
}

func (f *fakeSession) ClearTranscripts() { f.clears++ }

func (f *fakeSession) ExportTranscripts(context.Context) (string, error) {
	f.exports++
	if f.failing {
		return "", errors.New("disk full")
	}
	return "/tmp/transcripts_x.txt", nil
}

func TestRunDispatchesCommands(t *testing.T) {
	session := &fakeSession{}
	var out bytes.Buffer
	in := strings.NewReader("t\n\nTOGGLE\nc\nd\nbogus\n")

	err := New(session, in, &out).Run(context.Background())
	if err != nil {
		t.Fatalf("expected nil error at EOF, got %v", err)
	}
	if session.toggles != 2 || session.clears != 1 || session.exports != 1 {
		t.Fatalf("unexpected dispatch counts %+v", session)
	}
	if !strings.Contains(out.String(), "saved /tmp/transcripts_x.txt") {
		t.Fatalf("expected export path reported, got %q", out.String())
	}
	if !strings.Contains(out.String(), `unknown command "bogus"`) {
		t.Fatalf("expected unknown command reported, got %q", out.String())
	}
}

func TestRunQuit(t *testing.T) {
	session := &fakeSession{}
	err := New(session, strings.NewReader("t\nq\nt\n"), io.Discard).Run(context.Background())
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if session.toggles != 1 {
		t.Fatalf("expected commands after quit ignored, got %d toggles", session.toggles)
	}
}

func TestRunReportsExportFailure(t *testing.T) {
	session := &fakeSession{failing: true}
	var out bytes.Buffer
	if err := New(session, strings.NewReader("d\n"), &out).Run(context.Background()); err != nil {
		t.Fatalf("export failure must not stop the reader: %v", err)
	}
	if !strings.Contains(out.String(), "export failed: disk full") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeSession{}, pr, io.Discard).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop after cancel")
	}
}
