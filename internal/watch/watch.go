// Package watch triggers a debounced callback when watched directories change.
package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chess10kp/xdock/internal/logging"
)

var log = logging.For("watch")

// Watcher coalesces bursts of file events into one onChange call.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	match    func(path string) bool
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
}

// New watches the existing directories among dirs. match filters event
// paths; nil accepts every path.
func New(dirs []string, debounce time.Duration, match func(string) bool, onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		debounce: debounce,
		match:    match,
		onChange: onChange,
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			log.Debugf("not watching %s: not a directory", dir)
			continue
		}
		if err := fs.Add(dir); err != nil {
			log.Warnf("failed to watch %s: %v", dir, err)
			continue
		}
		log.Debugf("watching %s", dir)
	}
	return w, nil
}

// Watched returns the directories being watched.
func (w *Watcher) Watched() []string {
	return w.fs.WatchList()
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.stopTimer()
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if w.match != nil && !w.match(ev.Name) {
				continue
			}
			log.Debugf("change: %s", ev)
			w.trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.stopTimer()
				return nil
			}
			log.Warnf("watch error: %v", err)
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fs.Close()
}
