package stt

import "sync"

// notifier stores the registered handlers and serialises delivery so a
// recognizer never runs two handlers at once.
type notifier struct {
	mu       sync.RWMutex
	handlers Handlers
	emitMu   sync.Mutex
}

func (n *notifier) SetHandlers(h Handlers) {
	n.mu.Lock()
	n.handlers = h
	n.mu.Unlock()
}

func (n *notifier) current() Handlers {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.handlers
}

func (n *notifier) emitResult(evt ResultEvent) {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()
	if h := n.current().Result; h != nil {
		h(evt)
	}
}

func (n *notifier) emitError(evt ErrorEvent) {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()
	if h := n.current().Error; h != nil {
		h(evt)
	}
}

func (n *notifier) emitEnd() {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()
	if h := n.current().End; h != nil {
		h()
	}
}
