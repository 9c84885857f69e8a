package stt

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errAlreadyStarted = errors.New("recognizer already started")

// MockRecognizer is a scripted recognizer. Tests drive it through the Emit
// methods; with a positive interval it also produces a synthetic phrase on
// every tick while started.
type MockRecognizer struct {
	notifier

	mu        sync.Mutex
	opts      Options
	available bool
	active    bool
	starts    int
	stops     int
	startErr  error
	interval  time.Duration
	phrase    string
	results   []Result
	quit      chan struct{}
}

func NewMockRecognizer(interval time.Duration, phrase string) *MockRecognizer {
	return &MockRecognizer{available: true, interval: interval, phrase: phrase}
}

func (m *MockRecognizer) Name() string { return "mock" }

func (m *MockRecognizer) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable toggles what Available reports.
func (m *MockRecognizer) SetAvailable(ok bool) {
	m.mu.Lock()
	m.available = ok
	m.mu.Unlock()
}

// FailStart makes every following Start return err. Pass nil to clear.
func (m *MockRecognizer) FailStart(err error) {
	m.mu.Lock()
	m.startErr = err
	m.mu.Unlock()
}

func (m *MockRecognizer) Configure(opts Options) {
	m.mu.Lock()
	m.opts = opts
	m.mu.Unlock()
}

// Options returns the last configuration applied.
func (m *MockRecognizer) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

func (m *MockRecognizer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.active {
		return errAlreadyStarted
	}
	m.active = true
	m.starts++
	m.results = nil
	if m.interval > 0 {
		m.quit = make(chan struct{})
		go m.tick(m.quit)
	}
	return nil
}

func (m *MockRecognizer) Stop() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = false
	m.stops++
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	m.mu.Unlock()

	m.emitEnd()
	return nil
}

// Active reports whether the recognizer is between Start and Stop/End.
func (m *MockRecognizer) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Starts returns how many times Start succeeded.
func (m *MockRecognizer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops returns how many times Stop ended an active run.
func (m *MockRecognizer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// EmitResult delivers evt to the result handler.
func (m *MockRecognizer) EmitResult(evt ResultEvent) {
	m.emitResult(evt)
}

// EmitFinal delivers a single final result.
func (m *MockRecognizer) EmitFinal(text string) {
	m.emitResult(ResultEvent{Results: []Result{{Text: text, Final: true}}})
}

// EmitInterim delivers a single interim result.
func (m *MockRecognizer) EmitInterim(text string) {
	m.emitResult(ResultEvent{Results: []Result{{Text: text}}})
}

// EmitError delivers evt to the error handler.
func (m *MockRecognizer) EmitError(evt ErrorEvent) {
	m.emitError(evt)
}

// EmitEnd marks the run finished, as a backend does when its own session
// times out, and delivers the end notification.
func (m *MockRecognizer) EmitEnd() {
	m.mu.Lock()
	m.active = false
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	m.mu.Unlock()
	m.emitEnd()
}

func (m *MockRecognizer) tick(quit <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
		text := fmt.Sprintf("%s (%d)", m.phrase, n)

		m.mu.Lock()
		interim := m.opts.InterimResults
		idx := len(m.results)
		m.results = append(m.results, Result{Text: text, Final: true})
		snapshot := append([]Result(nil), m.results...)
		m.mu.Unlock()

		if interim {
			partial := append([]Result(nil), snapshot...)
			partial[idx] = Result{Text: text}
			m.emitResult(ResultEvent{ResultIndex: idx, Results: partial})
		}
		m.emitResult(ResultEvent{ResultIndex: idx, Results: snapshot})
	}
}
