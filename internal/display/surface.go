// Package display renders session status and transcript entries.
package display

import "github.com/loqalabs/loqa-scribe/internal/transcript"

// Status is the content of the status region.
type Status struct {
	Message   string
	Recording bool
}

// Text is the status line as shown to the user.
func (s Status) Text() string {
	return "Status: " + s.Message
}

// Class names the visual style of the status region.
func (s Status) Class() string {
	if s.Recording {
		return "status recording"
	}
	return "status not-recording"
}

// Surface is the output side of the session UI. Entries are shown
// most-recent-first.
type Surface interface {
	SetStatus(s Status)
	Prepend(e transcript.Entry)
	Clear()
}
