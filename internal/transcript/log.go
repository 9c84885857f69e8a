// Package transcript holds the finalized entries collected during a
// recording session.
package transcript

import (
	"strings"
	"time"
)

// Entry is one finalized transcript segment.
type Entry struct {
	Text      string
	Timestamp string
	At        time.Time
}

// Line renders the entry as it appears in exported text.
func (e Entry) Line() string {
	return e.Timestamp + ": " + e.Text + "\n"
}

// Log is an append-only list of entries mirrored as plain text. It is not
// safe for concurrent use.
type Log struct {
	entries []Entry
	plain   strings.Builder
}

// Append adds e to the end of the log and the plain-text mirror.
func (l *Log) Append(e Entry) {
	l.entries = append(l.entries, e)
	l.plain.WriteString(e.Line())
}

// Entries returns a copy of the entries in finalization order.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// PlainText returns the mirror: one "<timestamp>: <text>" line per entry.
func (l *Log) PlainText() string {
	return l.plain.String()
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Clear empties the log and its mirror together.
func (l *Log) Clear() {
	l.entries = nil
	l.plain.Reset()
}
