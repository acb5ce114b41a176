package xdg

import (
	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/wire"
)

// WmBase is a bound xdg_wm_base. Pings from the compositor are
// answered automatically.
type WmBase struct {
	wl.BaseProxy

	// Ping, if non-nil, is called after a ping has been answered.
	Ping func(serial uint32)
}

// NewWmBase returns an unbound proxy for use with a wl.Binder.
func NewWmBase(client *wl.Client) *WmBase {
	var wm WmBase
	wm.Init(client, 0)
	return &wm
}

func (wm *WmBase) Interface() string {
	return WmBaseInterface
}

func (wm *WmBase) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeWmBaseEvent(wm.Client(), wm, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case WmBasePingEvent:
		wm.Pong(ev.Serial)
		if wm.Ping != nil {
			wm.Ping(ev.Serial)
		}
		return nil

	default:
		panic(ev)
	}
}

func (wm *WmBase) Pong(serial uint32) {
	if wm.Destroyed() {
		return
	}

	msg := wire.NewMessage(wm, opWmBasePong)
	msg.Method = "pong"
	msg.Args = []any{serial}
	msg.WriteUint(serial)
	wm.Client().Enqueue(msg)
}

// GetXdgSurface gives s the xdg_surface role. It fails if either
// object has been destroyed or if s already has a role.
func (wm *WmBase) GetXdgSurface(s *wl.Surface) (*Surface, error) {
	if wm.Destroyed() || s.Destroyed() {
		return nil, wl.ErrDestroyed
	}

	xs := Surface{wm: wm, surface: s}
	xs.Init(wm.Client(), wm.Version())
	err := s.SetRole(&xs)
	if err != nil {
		return nil, err
	}
	wm.Client().Add(&xs)

	msg := wire.NewMessage(wm, opWmBaseGetXdgSurface)
	msg.Method = "get_xdg_surface"
	msg.Args = []any{&xs, s}
	msg.WriteObject(&xs)
	msg.WriteObject(s)
	wm.Client().Enqueue(msg)

	return &xs, nil
}

// Destroy destroys the proxy. Every xdg_surface created from it must
// be destroyed first.
func (wm *WmBase) Destroy() error {
	if !wm.MarkDestroyed() {
		return nil
	}

	msg := wire.NewMessage(wm, opWmBaseDestroy)
	msg.Method = "destroy"
	wm.Client().Enqueue(msg)
	return nil
}
