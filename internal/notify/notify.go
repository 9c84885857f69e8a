// Package notify surfaces messages that need the user's attention outside
// the status line.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Alerter shows a one-off message to the user.
type Alerter interface {
	Alert(title, message string) error
}

// Desktop raises a desktop notification.
type Desktop struct{}

func (Desktop) Alert(title, message string) error {
	return beeep.Alert(title, message, "")
}

// Log writes alerts to a logger, for headless runs.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Alert(title, message string) error {
	l.Logger.Error(message, slog.String("alert", title))
	return nil
}
