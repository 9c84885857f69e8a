package stt

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-scribe/internal/bus"
	"github.com/loqalabs/loqa-scribe/internal/config"
)

// Open builds the recognizer selected by cfg. It returns ErrUnavailable
// when recognition is disabled or the selected backend cannot run here.
func Open(cfg config.STTConfig, busClient *bus.Client, log *slog.Logger) (Recognizer, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("stt disabled: %w", ErrUnavailable)
	}

	var (
		rec Recognizer
		err error
	)
	switch cfg.Mode {
	case "mock":
		rec = NewMockRecognizer(time.Duration(cfg.MockIntervalMS)*time.Millisecond, cfg.MockPhrase)
	case "exec":
		rec, err = NewExecRecognizer(cfg.Command, log)
		if err != nil {
			return nil, err
		}
	case "nats":
		if busClient == nil {
			return nil, fmt.Errorf("stt mode nats requires a bus connection: %w", ErrUnavailable)
		}
		rec = NewNATSRecognizer(busClient, cfg.SessionID, log)
	default:
		return nil, fmt.Errorf("stt mode %q: %w", cfg.Mode, ErrUnavailable)
	}

	if !rec.Available() {
		return nil, fmt.Errorf("stt backend %s: %w", rec.Name(), ErrUnavailable)
	}
	return rec, nil
}
