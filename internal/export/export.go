// Package export writes collected transcripts to downloadable files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ContentType is the MIME type of exported transcripts.
const ContentType = "text/plain"

var pathUnsafe = strings.NewReplacer(
	"/", "-",
	":", "-",
	"\\", "-",
	"*", "-",
	"?", "-",
	"\"", "-",
	"<", "-",
	">", "-",
	"|", "-",
)

// Sanitize replaces characters that are not valid in file names.
func Sanitize(s string) string {
	return pathUnsafe.Replace(s)
}

// FileName builds transcripts_<timestamp>.txt from now formatted with layout.
func FileName(now time.Time, layout string) string {
	return "transcripts_" + Sanitize(now.Format(layout)) + ".txt"
}

// Target receives a finished export.
type Target interface {
	Save(ctx context.Context, name, contentType string, body []byte) (string, error)
}

// Exporter names and hands transcript text to a Target.
type Exporter struct {
	target Target
	layout string
	clock  func() time.Time
}

func New(target Target, layout string) *Exporter {
	return &Exporter{target: target, layout: layout, clock: time.Now}
}

// WithClock overrides the time source used for file names.
func (e *Exporter) WithClock(clock func() time.Time) *Exporter {
	e.clock = clock
	return e
}

// Export saves body and returns where it was written.
func (e *Exporter) Export(ctx context.Context, body string) (string, error) {
	name := FileName(e.clock(), e.layout)
	location, err := e.target.Save(ctx, name, ContentType, []byte(body))
	if err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	return location, nil
}

// Dir saves exports as files in a directory.
type Dir struct {
	path string
}

func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Save writes body through a temporary file and renames it into place. The
// file is closed before Save returns.
func (d *Dir) Save(ctx context.Context, name, _ string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.path, ".transcripts-*.tmp")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	final := filepath.Join(d.path, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return final, nil
}
