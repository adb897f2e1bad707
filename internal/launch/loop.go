package launch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cancel stops a scheduled callback. Calling it from the loop guarantees the
// callback does not run afterwards.
type Cancel func()

// Loop serialises callbacks onto one thread. Application runs every state
// change on its loop.
type Loop interface {
	Post(f func())
	After(d time.Duration, f func()) Cancel
}

// SerialLoop is a Loop backed by a single goroutine, for use without a GUI
// main loop.
type SerialLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewSerialLoop starts the loop goroutine.
func NewSerialLoop() *SerialLoop {
	l := &SerialLoop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *SerialLoop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			f := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			f()
		}
	}
}

// Post queues f. Posting after Close is a no-op.
func (l *SerialLoop) Post(f func()) {
	if l.closed.Load() {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After posts f once d has elapsed.
func (l *SerialLoop) After(d time.Duration, f func()) Cancel {
	var cancelled atomic.Bool
	timer := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				f()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Invoke runs f on the loop and waits for it to return.
func (l *SerialLoop) Invoke(f func()) {
	if l.closed.Load() {
		return
	}
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		f()
	})
	select {
	case <-ran:
	case <-l.done:
	}
}

// Close stops the loop. Queued callbacks that have not started are dropped.
func (l *SerialLoop) Close() {
	if l.closed.Swap(true) {
		return
	}
	close(l.quit)
	<-l.done
}
