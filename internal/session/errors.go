package session

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("session closed")

// ConfigurationError means speech recognition cannot run at all. It is
// reported once, at initialisation, and leaves the controls inert.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProviderError is a recognizer failure during a session. It never stops
// the session.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "speech recognition error: " + e.Code
	}
	return fmt.Sprintf("speech recognition error: %s: %s", e.Code, e.Message)
}
