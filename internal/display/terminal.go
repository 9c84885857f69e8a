package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/loqalabs/loqa-scribe/internal/transcript"
)

const (
	ansiClear = "\033[H\033[2J"
	ansiRed   = "\033[31m"
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// Terminal redraws the status line and the entry list on every change.
// Without ANSI each frame is appended to the output instead.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	ansi    bool
	status  Status
	entries []transcript.Entry
}

func NewTerminal(out io.Writer, ansi bool) *Terminal {
	return &Terminal{out: out, ansi: ansi, status: Status{Message: "Not Recording"}}
}

func (t *Terminal) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	t.render()
}

func (t *Terminal) Prepend(e transcript.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append([]transcript.Entry{e}, t.entries...)
	t.render()
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.render()
}

func (t *Terminal) render() {
	var b strings.Builder
	if t.ansi {
		b.WriteString(ansiClear)
		if t.status.Recording {
			b.WriteString(ansiRed + t.status.Text() + ansiReset + "\n")
		} else {
			b.WriteString(ansiDim + t.status.Text() + ansiReset + "\n")
		}
	} else {
		fmt.Fprintf(&b, "[%s] %s\n", t.status.Class(), t.status.Text())
	}
	b.WriteString("commands: t=toggle c=clear d=download q=quit\n\n")
	for _, e := range t.entries {
		if t.ansi {
			b.WriteString(ansiBold + e.Timestamp + ansiReset + "\n")
		} else {
			b.WriteString(e.Timestamp + "\n")
		}
		b.WriteString("  " + e.Text + "\n")
	}
	_, _ = io.WriteString(t.out, b.String())
}
