// Package xwin maps process ids to top-level X11 windows through root-window
// properties.
package xwin

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Handle is a native X11 window id.
type Handle uint32

// ErrNoDisplay reports that no X connection is available. Lookups treat it as
// an empty result.
var ErrNoDisplay = errors.New("no X display connection")

// Property is a raw property value. Each item takes Format/8 bytes.
type Property struct {
	Format byte
	Value  []byte
	Length uint32
}

// Items decodes the value into 8, 16 or 32-bit items. Unsupported formats
// decode to nil.
func (p Property) Items() []uint32 {
	var size int
	switch p.Format {
	case 8, 16, 32:
		size = int(p.Format) / 8
	default:
		return nil
	}

	n := len(p.Value) / size
	if p.Length > 0 && int(p.Length) < n {
		n = int(p.Length)
	}

	items := make([]uint32, n)
	for i := 0; i < n; i++ {
		buf := p.Value[i*size:]
		switch size {
		case 1:
			items[i] = uint32(buf[0])
		case 2:
			items[i] = uint32(xgb.Get16(buf))
		case 4:
			items[i] = xgb.Get32(buf)
		}
	}
	return items
}

// Display is the property source a Locator reads from.
type Display interface {
	RootProperty(atom string) (Property, error)
	WindowProperty(win Handle, atom string) (Property, error)
	Close()
}

// XDisplay is a Display backed by an xgbutil connection.
type XDisplay struct {
	xu *xgbutil.XUtil
}

// Connect opens the named display, or $DISPLAY when name is empty.
func Connect(name string) (*XDisplay, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if name == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDisplay, err)
	}
	return &XDisplay{xu: xu}, nil
}

func (d *XDisplay) RootProperty(atom string) (Property, error) {
	if d == nil || d.xu == nil {
		return Property{}, ErrNoDisplay
	}
	return d.property(d.xu.RootWin(), atom)
}

func (d *XDisplay) WindowProperty(win Handle, atom string) (Property, error) {
	if d == nil || d.xu == nil {
		return Property{}, ErrNoDisplay
	}
	return d.property(xproto.Window(win), atom)
}

func (d *XDisplay) property(win xproto.Window, atom string) (Property, error) {
	reply, err := xprop.GetProperty(d.xu, win, atom)
	if err != nil {
		return Property{}, err
	}
	return Property{Format: reply.Format, Value: reply.Value, Length: reply.ValueLen}, nil
}

func (d *XDisplay) Close() {
	if d == nil || d.xu == nil {
		return
	}
	d.xu.Conn().Close()
	d.xu = nil
}
