package ui

import (
	"fmt"

	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/xdock/internal/launch"
	"github.com/chess10kp/xdock/internal/xwin"
)

// SocketEmbedder hosts foreign windows in GtkSockets packed into the box
// returned by host.
type SocketEmbedder struct {
	host func() (*gtk.Box, error)
}

func NewSocketEmbedder(host func() (*gtk.Box, error)) *SocketEmbedder {
	return &SocketEmbedder{host: host}
}

func (e *SocketEmbedder) Embed(h xwin.Handle) (launch.Surface, error) {
	box, err := e.host()
	if err != nil {
		return nil, err
	}

	socket, err := gtk.SocketNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}
	socket.SetHExpand(true)
	socket.SetVExpand(true)
	// Keep the socket when the client goes away; Release destroys it.
	socket.Connect("plug-removed", func() bool { return true })

	box.PackStart(socket, true, true, 0)
	socket.Show()
	socket.AddId(uint(h))

	log.Debugf("embedded window 0x%x", uint32(h))
	return &socketSurface{handle: h, socket: socket}, nil
}

type socketSurface struct {
	handle xwin.Handle
	socket *gtk.Socket
}

func (s *socketSurface) Handle() xwin.Handle { return s.handle }

// Release destroys the socket widget. The foreign window is reparented back
// to the root by the X server and keeps running.
func (s *socketSurface) Release() {
	if s.socket == nil {
		return
	}
	s.socket.Destroy()
	s.socket = nil
}
