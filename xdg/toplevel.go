package xdg

import (
	"slices"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/wire"
)

// Has reports whether the configuration includes state.
func (ev ToplevelConfigureEvent) Has(state ToplevelState) bool {
	return slices.Contains(ev.States, state)
}

// Toplevel is an xdg_toplevel, a regular desktop window.
type Toplevel struct {
	wl.BaseProxy

	// Configure is called when a new configuration takes effect, which
	// happens on the xdg_surface configure event following the
	// toplevel's own. A zero width or height leaves that dimension up
	// to the client.
	Configure func(ToplevelConfigureEvent)

	// Close is called when the user asks for the window to be closed.
	Close func()

	// Bounds is called with the size that the window should stay
	// within, such as the size of the output minus any panels.
	Bounds func(width, height int32)

	// Capabilities is called with the window management features
	// that the compositor supports.
	Capabilities func([]WmCapability)

	surface *Surface
	pending *ToplevelConfigureEvent
	current ToplevelConfigureEvent
}

func (t *Toplevel) Interface() string {
	return ToplevelInterface
}

func (t *Toplevel) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeToplevelEvent(t.Client(), t, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case ToplevelConfigureEvent:
		if ev.Width < 0 || ev.Height < 0 {
			return wl.ProtocolViolationf("%v@%v: negative size %vx%v", t.Interface(), t.ID(), ev.Width, ev.Height)
		}
		t.pending = &ev
		return nil

	case ToplevelCloseEvent:
		if t.Close != nil {
			t.Close()
		}
		return nil

	case ToplevelConfigureBoundsEvent:
		if t.Bounds != nil {
			t.Bounds(ev.Width, ev.Height)
		}
		return nil

	case ToplevelWmCapabilitiesEvent:
		if t.Capabilities != nil {
			t.Capabilities(ev.Capabilities)
		}
		return nil

	default:
		panic(ev)
	}
}

func (t *Toplevel) apply() {
	if t.pending == nil {
		return
	}

	t.current, t.pending = *t.pending, nil
	if t.Configure != nil {
		t.Configure(t.current)
	}
}

// XdgSurface returns the xdg_surface that the toplevel was created
// from.
func (t *Toplevel) XdgSurface() *Surface {
	return t.surface
}

// Current returns the configuration that is currently in effect.
func (t *Toplevel) Current() ToplevelConfigureEvent {
	return t.current
}

func (t *Toplevel) request(op uint16, method string, args ...any) (*wire.MessageBuilder, error) {
	if t.Destroyed() {
		return nil, wl.ErrDestroyed
	}

	msg := wire.NewMessage(t, op)
	msg.Method = method
	msg.Args = args
	return msg, nil
}

func (t *Toplevel) SetTitle(title string) error {
	msg, err := t.request(opToplevelSetTitle, "set_title", title)
	if err != nil {
		return err
	}
	msg.WriteString(title)
	t.Client().Enqueue(msg)
	return nil
}

// SetAppID sets the application identifier, which compositors
// commonly match against the basename of a desktop file.
func (t *Toplevel) SetAppID(id string) error {
	msg, err := t.request(opToplevelSetAppID, "set_app_id", id)
	if err != nil {
		return err
	}
	msg.WriteString(id)
	t.Client().Enqueue(msg)
	return nil
}

func (t *Toplevel) SetMinSize(width, height int32) error {
	return t.size(opToplevelSetMinSize, "set_min_size", width, height)
}

func (t *Toplevel) SetMaxSize(width, height int32) error {
	return t.size(opToplevelSetMaxSize, "set_max_size", width, height)
}

func (t *Toplevel) size(op uint16, method string, width, height int32) error {
	msg, err := t.request(op, method, width, height)
	if err != nil {
		return err
	}
	msg.WriteInt(width)
	msg.WriteInt(height)
	t.Client().Enqueue(msg)
	return nil
}

func (t *Toplevel) SetMaximized() error {
	msg, err := t.request(opToplevelSetMaximized, "set_maximized")
	if err != nil {
		return err
	}
	t.Client().Enqueue(msg)
	return nil
}

func (t *Toplevel) UnsetMaximized() error {
	msg, err := t.request(opToplevelUnsetMaximized, "unset_maximized")
	if err != nil {
		return err
	}
	t.Client().Enqueue(msg)
	return nil
}

func (t *Toplevel) SetMinimized() error {
	msg, err := t.request(opToplevelSetMinimized, "set_minimized")
	if err != nil {
		return err
	}
	t.Client().Enqueue(msg)
	return nil
}

func (t *Toplevel) Destroy() error {
	if !t.MarkDestroyed() {
		return nil
	}

	msg := wire.NewMessage(t, opToplevelDestroy)
	msg.Method = "destroy"
	t.Client().Enqueue(msg)
	return nil
}
