package stt

import (
	"errors"
	"testing"

	"github.com/loqalabs/loqa-scribe/internal/config"
)

func TestOpenMock(t *testing.T) {
	rec, err := Open(config.STTConfig{Enabled: true, Mode: "mock"}, nil, newLogger())
	if err != nil {
		t.Fatalf("open mock: %v", err)
	}
	if rec.Name() != "mock" {
		t.Fatalf("expected mock recognizer, got %s", rec.Name())
	}
}

func TestOpenUnavailable(t *testing.T) {
	cases := map[string]config.STTConfig{
		"disabled":       {Enabled: false, Mode: "mock"},
		"unknown mode":   {Enabled: true, Mode: "webkit"},
		"nats no bus":    {Enabled: true, Mode: "nats"},
		"missing binary": {Enabled: true, Mode: "exec", Command: "definitely-not-a-real-stt-binary --fast"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Open(cfg, nil, newLogger())
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestMockRecognizerLifecycle(t *testing.T) {
	rec := NewMockRecognizer(0, "")
	ends := 0
	rec.SetHandlers(Handlers{End: func() { ends++ }})

	if err := rec.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rec.Start(); err == nil {
		t.Fatal("expected error starting an active recognizer")
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if rec.Starts() != 1 || rec.Stops() != 1 || ends != 1 {
		t.Fatalf("unexpected counters starts=%d stops=%d ends=%d", rec.Starts(), rec.Stops(), ends)
	}
}
