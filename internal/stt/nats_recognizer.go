package stt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loqalabs/loqa-scribe/internal/bus"
	"github.com/loqalabs/loqa-scribe/internal/protocol"
	"github.com/nats-io/nats.go"
)

// natsRecognizer consumes transcripts published on the bus by a loqa
// runtime. Each bus message becomes one result event.
type natsRecognizer struct {
	notifier

	bus       *bus.Client
	sessionID string
	log       *slog.Logger

	mu   sync.Mutex
	opts Options
	subs []*nats.Subscription
}

func NewNATSRecognizer(busClient *bus.Client, sessionID string, log *slog.Logger) Recognizer {
	return &natsRecognizer{
		bus:       busClient,
		sessionID: sessionID,
		log:       log.With(slog.String("component", "stt.nats")),
	}
}

func (r *natsRecognizer) Name() string { return "nats" }

func (r *natsRecognizer) Available() bool {
	return r.bus.Healthy()
}

func (r *natsRecognizer) Configure(opts Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

func (r *natsRecognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) > 0 {
		return errAlreadyStarted
	}

	subjects := []string{protocol.SubjectTranscriptFinal}
	if r.opts.InterimResults {
		subjects = append(subjects, protocol.SubjectTranscriptPartial)
	}
	for _, subject := range subjects {
		sub, err := r.bus.Conn().Subscribe(subject, r.handleTranscript)
		if err != nil {
			r.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		r.subs = append(r.subs, sub)
	}
	if err := r.bus.Conn().Flush(); err != nil {
		r.unsubscribeLocked()
		return fmt.Errorf("flush subscriptions: %w", err)
	}
	return nil
}

func (r *natsRecognizer) Stop() error {
	r.mu.Lock()
	if len(r.subs) == 0 {
		r.mu.Unlock()
		return nil
	}
	r.unsubscribeLocked()
	r.mu.Unlock()

	r.emitEnd()
	return nil
}

func (r *natsRecognizer) unsubscribeLocked() {
	for _, sub := range r.subs {
		if err := sub.Unsubscribe(); err != nil {
			r.log.Warn("failed to unsubscribe", slog.String("subject", sub.Subject), slog.String("error", err.Error()))
		}
	}
	r.subs = nil
}

func (r *natsRecognizer) handleTranscript(msg *nats.Msg) {
	var transcript protocol.Transcript
	if err := json.Unmarshal(msg.Data, &transcript); err != nil {
		r.log.Warn("failed to decode transcript", slog.String("error", err.Error()))
		r.emitError(ErrorEvent{Code: "bad-message", Message: err.Error()})
		return
	}
	if r.sessionID != "" && transcript.SessionID != r.sessionID {
		return
	}
	if transcript.Text == "" {
		return
	}

	r.mu.Lock()
	opts := r.opts
	active := len(r.subs) > 0
	r.mu.Unlock()
	if !active || (transcript.Partial && !opts.InterimResults) {
		return
	}

	r.emitResult(ResultEvent{Results: []Result{{
		Text:       transcript.Text,
		Final:      !transcript.Partial,
		Confidence: transcript.Confidence,
	}}})

	if !opts.Continuous && !transcript.Partial {
		go func() { _ = r.Stop() }()
	}
}
