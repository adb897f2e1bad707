// Package ui is the GTK front end: the launcher window, the glib-backed
// loop and window embedding through GtkSocket.
package ui

import (
	"time"

	"github.com/gotk3/gotk3/glib"

	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/logging"
)

var log = logging.For("ui")

// GlibLoop runs callbacks on the GTK main loop.
type GlibLoop struct{}

func (GlibLoop) Post(f func()) {
	glib.IdleAdd(func() bool {
		f()
		return false
	})
}

// After schedules f on the main loop. Cancel removes the timeout source so
// nothing stays registered after teardown. Cancel must run on the main loop.
func (GlibLoop) After(d time.Duration, f func()) launch.Cancel {
	ms := uint(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}

	done := false
	src := glib.TimeoutAdd(ms, func() bool {
		done = true
		f()
		return false
	})
	return func() {
		if done {
			return
		}
		done = true
		glib.SourceRemove(src)
	}
}
