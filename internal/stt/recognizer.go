package stt

import "errors"

// ErrUnavailable is returned when no usable speech recognition backend is
// configured.
var ErrUnavailable = errors.New("speech recognition is not available")

// Result is one recognised segment. Final results will not be revised by
// the recognizer; interim ones may be.
type Result struct {
	Text       string
	Final      bool
	Confidence float64
}

// ResultEvent carries the recognizer's current result list. Entries before
// ResultIndex were already reported in earlier events.
type ResultEvent struct {
	ResultIndex int
	Results     []Result
}

// ErrorEvent reports a recognizer failure.
type ErrorEvent struct {
	Code    string
	Message string
}

// Options configures a recognizer before it is started.
type Options struct {
	Continuous     bool
	InterimResults bool
	Language       string
}

// Handlers holds one callback per notification kind. A nil slot drops that
// notification. Recognizers call handlers synchronously from their own
// goroutines, one notification at a time.
type Handlers struct {
	Result func(ResultEvent)
	Error  func(ErrorEvent)
	End    func()
}

// Recognizer abstracts STT backends.
type Recognizer interface {
	Name() string
	Available() bool
	Configure(opts Options)
	// SetHandlers replaces every handler slot.
	SetHandlers(h Handlers)
	Start() error
	Stop() error
}
