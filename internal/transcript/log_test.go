package transcript

import (
	"testing"
	"time"
)

func TestLogMirrorsEntries(t *testing.T) {
	var log Log
	log.Append(Entry{Text: "first", Timestamp: "1/2/2025, 9:00:00 AM", At: time.Now()})
	log.Append(Entry{Text: "second", Timestamp: "1/2/2025, 9:00:05 AM", At: time.Now()})

	want := "1/2/2025, 9:00:00 AM: first\n1/2/2025, 9:00:05 AM: second\n"
	if got := log.PlainText(); got != want {
		t.Fatalf("unexpected plain text %q", got)
	}
	entries := log.Entries()
	if len(entries) != 2 || entries[0].Text != "first" || entries[1].Text != "second" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	entries[0].Text = "mutated"
	if log.Entries()[0].Text != "first" {
		t.Fatal("entries must be returned as a copy")
	}
}

func TestLogClear(t *testing.T) {
	var log Log
	log.Append(Entry{Text: "x", Timestamp: "t"})
	log.Clear()
	log.Clear()
	if log.Len() != 0 || log.PlainText() != "" || len(log.Entries()) != 0 {
		t.Fatal("expected empty log after clear")
	}
}
