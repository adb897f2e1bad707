package launch

import "github.com/chess10kp/xdock/internal/xwin"

// Surface is an embeddable view over a window owned by another process.
// Releasing a surface detaches it; the native window is left alone.
type Surface interface {
	Handle() xwin.Handle
	Release()
}

// Embedder wraps native windows into surfaces for a host container.
type Embedder interface {
	Embed(h xwin.Handle) (Surface, error)
}

// View is a plain Surface with nothing to release.
type View struct {
	handle xwin.Handle
}

func (v View) Handle() xwin.Handle { return v.handle }

func (v View) Release() {}

// ViewEmbedder produces Views. It is used when there is no toolkit to embed
// into, for example by the command line.
type ViewEmbedder struct{}

func (ViewEmbedder) Embed(h xwin.Handle) (Surface, error) {
	return View{handle: h}, nil
}
