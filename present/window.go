package present

import (
	"context"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/shm"
	"deedles.dev/wlframe/xdg"
	"github.com/pkg/errors"
)

// Window is a toplevel desktop window that displays shm buffers.
type Window struct {
	// Configure, if non-nil, is called when the compositor suggests a
	// new size for the window. A zero width or height means that the
	// client should pick that dimension itself. It is safe to call
	// Present from inside Configure.
	Configure func(width, height int)

	// Close, if non-nil, is called when the user asks for the window to
	// be closed.
	Close func()

	session    *Session
	surface    *wl.Surface
	xdgSurface *xdg.Surface
	toplevel   *xdg.Toplevel
	current    *shm.Buffer
}

// NewWindow creates a window and makes the initial commit that asks
// the compositor to configure it. Empty strings leave the title and
// app ID unset.
func (s *Session) NewWindow(title, appID string) (w *Window, err error) {
	surface, err := s.Compositor.CreateSurface()
	if err != nil {
		return nil, errors.Wrap(err, "create surface")
	}
	defer func() {
		if err != nil {
			surface.Destroy()
		}
	}()

	xs, err := s.WmBase.GetXdgSurface(surface)
	if err != nil {
		return nil, errors.Wrap(err, "create xdg_surface")
	}
	toplevel, err := xs.GetToplevel()
	if err != nil {
		return nil, errors.Wrap(err, "create xdg_toplevel")
	}

	if title != "" {
		toplevel.SetTitle(title)
	}
	if appID != "" {
		toplevel.SetAppID(appID)
	}

	w = &Window{
		session:    s,
		surface:    surface,
		xdgSurface: xs,
		toplevel:   toplevel,
	}
	toplevel.Configure = w.configure
	toplevel.Close = w.close

	err = surface.Commit()
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) configure(ev xdg.ToplevelConfigureEvent) {
	if w.Configure != nil {
		w.Configure(int(ev.Width), int(ev.Height))
	}
}

func (w *Window) close() {
	if w.Close != nil {
		w.Close()
	}
}

func (w *Window) Surface() *wl.Surface {
	return w.surface
}

func (w *Window) XdgSurface() *xdg.Surface {
	return w.xdgSurface
}

func (w *Window) Toplevel() *xdg.Toplevel {
	return w.toplevel
}

// Configured reports whether the compositor has configured the window,
// after which buffers can be committed to it.
func (w *Window) Configured() bool {
	return w.xdgSurface.Configured()
}

// Current returns the most recently presented buffer.
func (w *Window) Current() *shm.Buffer {
	return w.current
}

// Present shows buf in the window. If the window has not been
// configured yet, Present dispatches events until it is, so it must
// not be called from an event handler before then. The buffer is
// attached, fully damaged and committed, and may not be used again
// until the compositor releases it. Requests are queued and sent the
// next time the client is dispatched.
func (w *Window) Present(ctx context.Context, buf *shm.Buffer) error {
	if buf.Busy() {
		return errors.Wrap(shm.ErrBufferBusy, "present")
	}

	err := w.session.Client.Wait(ctx, w.xdgSurface.Configured)
	if err != nil {
		return errors.Wrap(err, "wait for configure")
	}

	err = buf.MarkAttached()
	if err != nil {
		return err
	}

	d := buf.Descriptor()
	err = w.surface.Attach(buf.Wl(), 0, 0)
	if err != nil {
		return err
	}
	err = w.surface.DamageBuffer(0, 0, int32(d.Width), int32(d.Height))
	if err != nil {
		return err
	}
	err = w.surface.Commit()
	if err != nil {
		return err
	}

	w.current = buf
	return buf.MarkPresented()
}

// Destroy destroys the window and its role objects.
func (w *Window) Destroy() error {
	return w.surface.Destroy()
}
