// Package dispatch runs tasks one at a time, in submission order, on a
// single goroutine.
package dispatch

import "sync"

// Task is a unit of work executed on the loop goroutine.
type Task func()

// Loop is an unbounded FIFO task queue drained by one goroutine. Post never
// blocks, so tasks may enqueue further tasks.
type Loop struct {
	mu      sync.Mutex
	pending []Task
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// New starts a loop.
func New() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post enqueues task and returns immediately. It reports false once the
// loop is closed.
func (l *Loop) Post(task Task) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do enqueues task and waits for it to finish. It must not be called from
// a task running on the loop.
func (l *Loop) Do(task Task) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		task()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		// Close drains pending tasks before done is closed.
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Close stops accepting tasks, runs the ones already queued and waits for
// the loop goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		for _, task := range batch {
			task()
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}
