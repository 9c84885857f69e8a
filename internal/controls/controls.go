// Package controls maps line-oriented user commands onto a recording
// session.
package controls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrQuit is returned by Run when the user asks to quit.
var ErrQuit = errors.New("quit requested")

// Session is the subset of the controller the controls drive.
type Session interface {
	ToggleRecording() bool
	ClearTranscripts()
	ExportTranscripts(ctx context.Context) (string, error)
}

// Reader reads commands from in and reports back on out.
type Reader struct {
	session Session
	in      io.Reader
	out     io.Writer
}

func New(session Session, in io.Reader, out io.Writer) *Reader {
	return &Reader{session: session, in: in, out: out}
}

// Run processes commands until EOF, quit or ctx is done. Scanning happens
// on a separate goroutine so a blocked read does not delay cancellation.
func (r *Reader) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := r.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (r *Reader) handle(ctx context.Context, line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return nil
	case "t", "toggle":
		r.session.ToggleRecording()
	case "c", "clear":
		r.session.ClearTranscripts()
	case "d", "download", "export":
		path, err := r.session.ExportTranscripts(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "export failed: %v\n", err)
			return nil
		}
		fmt.Fprintf(r.out, "saved %s\n", path)
	case "q", "quit", "exit":
		return ErrQuit
	default:
		fmt.Fprintf(r.out, "unknown command %q (t=toggle c=clear d=download q=quit)\n", strings.TrimSpace(line))
	}
	return nil
}
