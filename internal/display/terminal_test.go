package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-scribe/internal/transcript"
)

func TestStatusClass(t *testing.T) {
	if got := (Status{Message: "Recording...", Recording: true}).Class(); got != "status recording" {
		t.Fatalf("unexpected class %q", got)
	}
	if got := (Status{Message: "Not Recording"}).Class(); got != "status not-recording" {
		t.Fatalf("unexpected class %q", got)
	}
	if got := (Status{Message: "Not Recording"}).Text(); got != "Status: Not Recording" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestTerminalRendersNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, false)
	term.SetStatus(Status{Message: "Recording...", Recording: true})
	term.Prepend(transcript.Entry{Text: "older", Timestamp: "t1"})
	buf.Reset()
	term.Prepend(transcript.Entry{Text: "newer", Timestamp: "t2"})

	frame := buf.String()
	if !strings.HasPrefix(frame, "[status recording] Status: Recording...") {
		t.Fatalf("unexpected status line in %q", frame)
	}
	if strings.Index(frame, "newer") > strings.Index(frame, "older") {
		t.Fatalf("expected newest entry first, got %q", frame)
	}
}

func TestTerminalClear(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, true)
	term.Prepend(transcript.Entry{Text: "gone", Timestamp: "t1"})
	buf.Reset()
	term.Clear()

	frame := buf.String()
	if !strings.HasPrefix(frame, ansiClear) {
		t.Fatal("expected ansi frame to clear the screen first")
	}
	if strings.Contains(frame, "gone") {
		t.Fatalf("expected cleared list, got %q", frame)
	}
}

func TestMemoryPrependOrder(t *testing.T) {
	m := NewMemory()
	m.Prepend(transcript.Entry{Text: "a"})
	m.Prepend(transcript.Entry{Text: "b"})
	entries := m.Entries()
	if len(entries) != 2 || entries[0].Text != "b" || entries[1].Text != "a" {
		t.Fatalf("unexpected order %+v", entries)
	}
	m.Clear()
	if len(m.Entries()) != 0 {
		t.Fatal("expected empty list after clear")
	}
}
