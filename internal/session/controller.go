// Package session coordinates a speech recognizer, the transcript log and
// the display for one recording session.
//
// Every recognizer notification and every user operation runs on a single
// dispatch loop, so controller state is never touched concurrently.
// Stopping the recognizer does not discard notifications that were already
// queued; a result delivered just before a stop may still be appended.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/loqalabs/loqa-scribe/internal/dispatch"
	"github.com/loqalabs/loqa-scribe/internal/display"
	"github.com/loqalabs/loqa-scribe/internal/export"
	"github.com/loqalabs/loqa-scribe/internal/notify"
	"github.com/loqalabs/loqa-scribe/internal/stt"
	"github.com/loqalabs/loqa-scribe/internal/transcript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

	statusRecording    = "Recording..."
	statusNotRecording = "Not Recording"

	alertTitle = "loqa-scribe"
)

// Deps are the collaborators a Controller drives. A nil Recognizer means
// speech recognition is unavailable.
type Deps struct {
	Recognizer stt.Recognizer
	Surface    display.Surface
	Exporter   *export.Exporter
	Alerter    notify.Alerter
	Logger     *slog.Logger
}

type Option func(*Controller)

// WithClock sets the time source for entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithTimestampLayout sets the time.Format layout used for entry timestamps.
func WithTimestampLayout(layout string) Option {
	return func(c *Controller) {
		if layout != "" {
			c.layout = layout
		}
	}
}

// WithLanguage passes a recognition language to the recognizer.
func WithLanguage(language string) Option {
	return func(c *Controller) { c.language = language }
}

// WithRestartBackoff delays consecutive recognizer restarts exponentially.
// Without it the recognizer is restarted immediately after every end.
func WithRestartBackoff(initial, max time.Duration, multiplier float64) Option {
	return func(c *Controller) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		b.Multiplier = multiplier
		b.RandomizationFactor = 0
		b.Reset()
		c.backoff = b
	}
}

// Controller owns the recording state and the transcript log.
type Controller struct {
	id       string
	rec      stt.Recognizer
	surface  display.Surface
	exporter *export.Exporter
	alerter  notify.Alerter
	log      *slog.Logger
	loop     *dispatch.Loop
	metrics  *metrics
	tracer   trace.Tracer

	clock    func() time.Time
	layout   string
	language string

	// Loop-owned state.
	initialized bool
	initErr     error
	ready       bool
	recording   bool
	transcripts transcript.Log
	backoff     *backoff.ExponentialBackOff
	restartGen  int
	restartWait *time.Timer

	entries atomic.Int64
}

func New(deps Deps, opts ...Option) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	surface := deps.Surface
	if surface == nil {
		surface = display.NewMemory()
	}
	alerter := deps.Alerter
	if alerter == nil {
		alerter = notify.Log{Logger: logger}
	}

	id := uuid.NewString()
	c := &Controller{
		id:       id,
		rec:      deps.Recognizer,
		surface:  surface,
		exporter: deps.Exporter,
		alerter:  alerter,
		log:      logger.With(slog.String("component", "session"), slog.String("session_id", id)),
		loop:     dispatch.New(),
		tracer:   otel.Tracer("github.com/loqalabs/loqa-scribe/session"),
		clock:    time.Now,
		layout:   DefaultTimestampLayout,
	}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newMetrics(otel.Meter("github.com/loqalabs/loqa-scribe/session"), c.entries.Load)
	if err != nil {
		c.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
		m = noopMetrics()
	}
	c.metrics = m
	return c
}

// ID identifies the session in logs.
func (c *Controller) ID() string { return c.id }

// Initialize checks that speech recognition is available and wires the
// recognizer's notifications into the session. A *ConfigurationError is
// returned, and surfaced to the user once, when it is not.
func (c *Controller) Initialize() error {
	err := ErrClosed
	c.loop.Do(func() { err = c.initialize() })
	return err
}

func (c *Controller) initialize() error {
	if c.initialized {
		return c.initErr
	}
	c.initialized = true

	if c.rec == nil || !c.rec.Available() {
		cfgErr := &ConfigurationError{
			Reason: "speech recognition is not available; configure a working stt backend",
			Err:    stt.ErrUnavailable,
		}
		c.initErr = cfgErr
		c.log.Error("speech recognition unavailable", slog.String("error", cfgErr.Error()))
		c.updateStatus("Error: "+cfgErr.Reason, false)
		if err := c.alerter.Alert(alertTitle, cfgErr.Reason); err != nil {
			c.log.Warn("failed to raise alert", slog.String("error", err.Error()))
		}
		return cfgErr
	}

	c.rec.Configure(stt.Options{
		Continuous:     true,
		InterimResults: true,
		Language:       c.language,
	})
	c.rec.SetHandlers(stt.Handlers{
		Result: func(evt stt.ResultEvent) {
			c.loop.Post(func() { c.onProviderResult(evt) })
		},
		Error: func(evt stt.ErrorEvent) {
			c.loop.Post(func() { c.onProviderError(evt) })
		},
		End: func() {
			c.loop.Post(c.onProviderEnd)
		},
	})
	c.ready = true
	c.updateStatus(statusNotRecording, false)
	c.log.Info("speech recognition ready", slog.String("recognizer", c.rec.Name()))
	return nil
}

// ToggleRecording flips between recording and idle and returns the new
// state. It does nothing when speech recognition is unavailable.
func (c *Controller) ToggleRecording() bool {
	var recording bool
	c.loop.Do(func() {
		c.toggleRecording()
		recording = c.recording
	})
	return recording
}

func (c *Controller) toggleRecording() {
	if !c.ready {
		c.log.Warn("toggle ignored: speech recognition unavailable")
		return
	}
	c.recording = !c.recording
	c.metrics.toggles.Add(context.Background(), 1, metricAttrs(c.recording))
	c.cancelRestart()

	if c.recording {
		if err := c.rec.Start(); err != nil {
			c.reportProviderError(&ProviderError{Code: "start-failed", Message: err.Error()})
			return
		}
		c.log.Info("recording started")
		c.updateStatus(statusRecording, true)
		return
	}

	if err := c.rec.Stop(); err != nil {
		c.reportProviderError(&ProviderError{Code: "stop-failed", Message: err.Error()})
		return
	}
	c.log.Info("recording stopped")
	c.updateStatus(statusNotRecording, false)
}

func (c *Controller) onProviderResult(evt stt.ResultEvent) {
	if c.backoff != nil {
		c.backoff.Reset()
	}
	start := evt.ResultIndex
	if start < 0 {
		start = 0
	}
	var finalized int
	for i := start; i < len(evt.Results); i++ {
		res := evt.Results[i]
		if !res.Final {
			c.metrics.interim.Add(context.Background(), 1)
			c.log.Debug("interim result discarded", slog.String("text", res.Text))
			continue
		}
		c.saveTranscript(res.Text)
		finalized++
	}
	if finalized > 0 {
		c.log.Debug("final results appended", slog.Int("count", finalized))
	}
}

func (c *Controller) saveTranscript(text string) {
	now := c.clock()
	entry := transcript.Entry{
		Text:      text,
		Timestamp: now.Format(c.layout),
		At:        now,
	}
	c.transcripts.Append(entry)
	c.entries.Store(int64(c.transcripts.Len()))
	c.surface.Prepend(entry)
	c.metrics.finalized.Add(context.Background(), 1)
	c.log.Info("final transcript", slog.String("text", text))
}

func (c *Controller) onProviderError(evt stt.ErrorEvent) {
	c.reportProviderError(&ProviderError{Code: evt.Code, Message: evt.Message})
}

func (c *Controller) reportProviderError(err *ProviderError) {
	c.metrics.errors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("code", err.Code)))
	c.log.Error("speech recognition error", slog.String("code", err.Code), slog.String("error", err.Error()))
	c.updateStatus("Error: "+err.Code, false)
}

// onProviderEnd keeps capture going across recognizer-imposed segment
// boundaries while the user still wants to record.
func (c *Controller) onProviderEnd() {
	if !c.recording {
		return
	}
	c.metrics.restarts.Add(context.Background(), 1)
	if c.backoff == nil {
		c.restart()
		return
	}

	delay := c.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = c.backoff.MaxInterval
	}
	c.restartGen++
	gen := c.restartGen
	c.log.Debug("recognizer restart scheduled", slog.Duration("delay", delay))
	c.restartWait = time.AfterFunc(delay, func() {
		c.loop.Post(func() {
			if gen != c.restartGen || !c.recording {
				return
			}
			c.restartWait = nil
			c.restart()
		})
	})
}

func (c *Controller) restart() {
	c.log.Debug("restarting recognizer")
	if err := c.rec.Start(); err != nil {
		c.reportProviderError(&ProviderError{Code: "restart-failed", Message: err.Error()})
	}
}

func (c *Controller) cancelRestart() {
	c.restartGen++
	if c.restartWait != nil {
		c.restartWait.Stop()
		c.restartWait = nil
	}
	if c.backoff != nil {
		c.backoff.Reset()
	}
}

// ClearTranscripts empties the log, its plain-text mirror and the display.
func (c *Controller) ClearTranscripts() {
	c.loop.Do(func() {
		c.transcripts.Clear()
		c.entries.Store(0)
		c.surface.Clear()
		c.log.Info("transcripts cleared")
	})
}

// ExportTranscripts writes the current plain-text log to a file and returns
// its location. The log is left untouched.
func (c *Controller) ExportTranscripts(ctx context.Context) (string, error) {
	if c.exporter == nil {
		return "", fmt.Errorf("export transcripts: no exporter configured")
	}
	var (
		body  string
		count int
	)
	if !c.loop.Do(func() {
		body = c.transcripts.PlainText()
		count = c.transcripts.Len()
	}) {
		return "", ErrClosed
	}

	ctx, span := c.tracer.Start(ctx, "session.export", trace.WithAttributes(attribute.Int("scribe.entries", count)))
	defer span.End()

	path, err := c.exporter.Export(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("export failed", slog.String("error", err.Error()))
		return "", err
	}
	span.SetAttributes(attribute.String("scribe.export.path", path))
	c.metrics.exports.Add(ctx, 1)
	c.log.Info("transcripts exported", slog.String("path", path), slog.Int("entries", count))
	return path, nil
}

func (c *Controller) updateStatus(message string, recording bool) {
	c.surface.SetStatus(display.Status{Message: message, Recording: recording})
}

// Transcripts returns the log in finalization order.
func (c *Controller) Transcripts() []transcript.Entry {
	var entries []transcript.Entry
	c.loop.Do(func() { entries = c.transcripts.Entries() })
	return entries
}

// PlainText returns the log as it would be exported.
func (c *Controller) PlainText() string {
	var text string
	c.loop.Do(func() { text = c.transcripts.PlainText() })
	return text
}

func (c *Controller) Recording() bool {
	var recording bool
	c.loop.Do(func() { recording = c.recording })
	return recording
}

// Ready reports whether initialisation found a usable recognizer.
func (c *Controller) Ready() bool {
	var ready bool
	c.loop.Do(func() { ready = c.ready })
	return ready
}

// Close stops recording and the dispatch loop. The controller is unusable
// afterwards.
func (c *Controller) Close() {
	c.loop.Do(func() {
		c.cancelRestart()
		if c.recording {
			c.recording = false
			if err := c.rec.Stop(); err != nil {
				c.log.Warn("failed to stop recognizer", slog.String("error", err.Error()))
			}
		}
	})
	c.loop.Close()
	if err := c.metrics.unregister(); err != nil {
		c.log.Warn("failed to unregister metrics", slog.String("error", err.Error()))
	}
}
