package xdg

import (
	"sync"
	"sync/atomic"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
)

// Surface is an xdg_surface, the role that a wl.Surface takes on to
// become part of the desktop. Configure events are acknowledged
// automatically before any handlers run, so handlers may commit new
// content right away.
type Surface struct {
	wl.BaseProxy

	// Configure, if non-nil, is called for every configure event
	// after it has been acknowledged and the toplevel's state, if any,
	// has been updated.
	Configure func(serial uint32)

	wm      *WmBase
	surface *wl.Surface

	configured atomic.Bool
	serial     atomic.Uint32

	m        sync.Mutex
	toplevel *Toplevel
}

func (s *Surface) Interface() string {
	return SurfaceInterface
}

// WlSurface returns the surface that this object is the role of.
func (s *Surface) WlSurface() *wl.Surface {
	return s.surface
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeSurfaceEvent(s.Client(), s, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case SurfaceConfigureEvent:
		s.AckConfigure(ev.Serial)
		if t := s.Toplevel(); t != nil {
			t.apply()
		}
		if s.Configure != nil {
			s.Configure(ev.Serial)
		}
		return nil

	default:
		panic(ev)
	}
}

// AckConfigure acknowledges the configure event with the given serial.
func (s *Surface) AckConfigure(serial uint32) {
	if s.Destroyed() {
		return
	}

	msg := wire.NewMessage(s, opSurfaceAckConfigure)
	msg.Method = "ack_configure"
	msg.Args = []any{serial}
	msg.WriteUint(serial)
	s.Client().Enqueue(msg)

	s.serial.Store(serial)
	s.configured.Store(true)
}

// Configured reports whether at least one configure event has been
// acknowledged. A buffer may not be attached to the surface before
// then.
func (s *Surface) Configured() bool {
	return s.configured.Load()
}

// Serial returns the serial of the last acknowledged configure event.
func (s *Surface) Serial() uint32 {
	return s.serial.Load()
}

// GetToplevel gives the surface the toplevel role.
func (s *Surface) GetToplevel() (*Toplevel, error) {
	if s.Destroyed() {
		return nil, wl.ErrDestroyed
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.toplevel != nil {
		return nil, errors.Errorf("%v@%v already has a toplevel", s.Interface(), s.ID())
	}

	t := Toplevel{surface: s}
	t.Init(s.Client(), s.Version())
	s.Client().Add(&t)

	msg := wire.NewMessage(s, opSurfaceGetToplevel)
	msg.Method = "get_toplevel"
	msg.Args = []any{&t}
	msg.WriteObject(&t)
	s.Client().Enqueue(msg)

	s.toplevel = &t
	return &t, nil
}

// Toplevel returns the toplevel created from the surface, or nil.
func (s *Surface) Toplevel() *Toplevel {
	s.m.Lock()
	defer s.m.Unlock()

	return s.toplevel
}

// SetWindowGeometry sets the part of the surface that is the window
// proper, excluding things like client-side shadows.
func (s *Surface) SetWindowGeometry(x, y, width, height int32) error {
	if s.Destroyed() {
		return wl.ErrDestroyed
	}

	msg := wire.NewMessage(s, opSurfaceSetWindowGeometry)
	msg.Method = "set_window_geometry"
	msg.Args = []any{x, y, width, height}
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.Client().Enqueue(msg)
	return nil
}

// Destroy destroys the toplevel, if there is one, and then the
// xdg_surface itself.
func (s *Surface) Destroy() error {
	if t := s.Toplevel(); t != nil {
		err := t.Destroy()
		if err != nil {
			return err
		}
	}

	if !s.MarkDestroyed() {
		return nil
	}

	msg := wire.NewMessage(s, opSurfaceDestroy)
	msg.Method = "destroy"
	s.Client().Enqueue(msg)
	return nil
}
