package xwin

import (
	"sync"

	"github.com/chess10kp/xdock/internal/logging"
)

var log = logging.For("xwin")

// Client-list atoms in lookup order. Window managers publish one or the other.
var clientListAtoms = []string{"_NET_CLIENT_LIST", "_WIN_CLIENT_LIST"}

const pidAtom = "_NET_WM_PID"

// Locator answers which windows belong to which process. Every call reads
// the display afresh; nothing is cached.
type Locator struct {
	display  Display
	warnOnce sync.Once
}

// NewLocator creates a locator over display. A nil display is valid and makes
// every lookup empty.
func NewLocator(display Display) *Locator {
	return &Locator{display: display}
}

// Available reports whether a display is attached.
func (l *Locator) Available() bool {
	return l != nil && l.display != nil
}

func (l *Locator) noDisplay() {
	l.warnOnce.Do(func() {
		log.Warnf("window lookup without display: %v", ErrNoDisplay)
	})
}

// Clients returns the managed top-level windows in client-list order.
func (l *Locator) Clients() []Handle {
	if l == nil {
		return nil
	}
	if l.display == nil {
		l.noDisplay()
		return nil
	}

	for _, atom := range clientListAtoms {
		prop, err := l.display.RootProperty(atom)
		if err != nil {
			log.Debugf("client list %s unavailable: %v", atom, err)
			continue
		}
		items := prop.Items()
		handles := make([]Handle, len(items))
		for i, it := range items {
			handles[i] = Handle(it)
		}
		return handles
	}
	return nil
}

// PID returns the process owning win.
func (l *Locator) PID(win Handle) (int, bool) {
	if !l.Available() {
		return 0, false
	}

	prop, err := l.display.WindowProperty(win, pidAtom)
	if err != nil {
		return 0, false
	}
	items := prop.Items()
	if len(items) == 0 {
		return 0, false
	}
	return int(items[0]), true
}

// WindowsForProcess returns every client window owned by pid, in client-list
// order. It never fails: a missing display or an unknown pid yield nil.
func (l *Locator) WindowsForProcess(pid int) []Handle {
	var out []Handle
	for _, win := range l.Clients() {
		if owner, ok := l.PID(win); ok && owner == pid {
			out = append(out, win)
		}
	}
	return out
}

// ClientPIDs returns the full pid to window table.
func (l *Locator) ClientPIDs() map[int][]Handle {
	table := make(map[int][]Handle)
	for _, win := range l.Clients() {
		if owner, ok := l.PID(win); ok {
			table[owner] = append(table[owner], win)
		}
	}
	return table
}

// Title returns the window title from _NET_WM_NAME or WM_NAME.
func (l *Locator) Title(win Handle) string {
	if !l.Available() {
		return ""
	}
	for _, atom := range []string{"_NET_WM_NAME", "WM_NAME"} {
		prop, err := l.display.WindowProperty(win, atom)
		if err == nil && prop.Format == 8 && len(prop.Value) > 0 {
			return string(prop.Value)
		}
	}
	return ""
}
