package display

import (
	"sync"

	"github.com/loqalabs/loqa-scribe/internal/transcript"
)

// Memory is a Surface that keeps what it was asked to show.
type Memory struct {
	mu      sync.Mutex
	status  Status
	entries []transcript.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SetStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Memory) Prepend(e transcript.Entry) {
	m.mu.Lock()
	m.entries = append([]transcript.Entry{e}, m.entries...)
	m.mu.Unlock()
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

func (m *Memory) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Entries returns the rendered list, newest first.
func (m *Memory) Entries() []transcript.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transcript.Entry(nil), m.entries...)
}
