// Package xdg implements the client side of the xdg-shell protocol,
// which turns plain surfaces into desktop windows.
package xdg

import (
	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/internal/bin"
	"deedles.dev/wlframe/wire"
)

const (
	WmBaseInterface   = "xdg_wm_base"
	SurfaceInterface  = "xdg_surface"
	ToplevelInterface = "xdg_toplevel"

	WmBaseVersion = 5
)

// Request opcodes.
const (
	opWmBaseDestroy       = 0
	opWmBaseGetXdgSurface = 2
	opWmBasePong          = 3

	opSurfaceDestroy           = 0
	opSurfaceGetToplevel       = 1
	opSurfaceSetWindowGeometry = 3
	opSurfaceAckConfigure      = 4

	opToplevelDestroy        = 0
	opToplevelSetTitle       = 2
	opToplevelSetAppID       = 3
	opToplevelSetMaxSize     = 7
	opToplevelSetMinSize     = 8
	opToplevelSetMaximized   = 9
	opToplevelUnsetMaximized = 10
	opToplevelSetMinimized   = 13
)

// Event opcodes.
const (
	evWmBasePing = 0

	evSurfaceConfigure = 0

	evToplevelConfigure       = 0
	evToplevelClose           = 1
	evToplevelConfigureBounds = 2
	evToplevelWmCapabilities  = 3
)

// ToplevelState is a state that a toplevel can be configured with.
type ToplevelState uint32

const (
	StateMaximized ToplevelState = 1 + iota
	StateFullscreen
	StateResizing
	StateActivated
	StateTiledLeft
	StateTiledRight
	StateTiledTop
	StateTiledBottom
	StateSuspended
)

// WmCapability is a window management feature that the compositor
// supports.
type WmCapability uint32

const (
	CapabilityWindowMenu WmCapability = 1 + iota
	CapabilityMaximize
	CapabilityFullscreen
	CapabilityMinimize
)

// WmBaseEvent is an event sent to an xdg_wm_base.
type WmBaseEvent interface{ wmBaseEvent() }

type WmBasePingEvent struct {
	Serial uint32
}

func (WmBasePingEvent) wmBaseEvent() {}

func decodeWmBaseEvent(c *wl.Client, obj wire.Object, msg *wire.MessageBuffer) (WmBaseEvent, error) {
	switch msg.Op() {
	case evWmBasePing:
		ev := WmBasePingEvent{Serial: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "ping")
	default:
		return nil, wl.UnknownEvent(obj, msg)
	}
}

// SurfaceEvent is an event sent to an xdg_surface.
type SurfaceEvent interface{ surfaceEvent() }

type SurfaceConfigureEvent struct {
	Serial uint32
}

func (SurfaceConfigureEvent) surfaceEvent() {}

func decodeSurfaceEvent(c *wl.Client, obj wire.Object, msg *wire.MessageBuffer) (SurfaceEvent, error) {
	switch msg.Op() {
	case evSurfaceConfigure:
		ev := SurfaceConfigureEvent{Serial: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "configure")
	default:
		return nil, wl.UnknownEvent(obj, msg)
	}
}

// ToplevelEvent is an event sent to an xdg_toplevel.
type ToplevelEvent interface{ toplevelEvent() }

type ToplevelConfigureEvent struct {
	Width, Height int32
	States        []ToplevelState
}

type ToplevelCloseEvent struct{}

type ToplevelConfigureBoundsEvent struct {
	Width, Height int32
}

type ToplevelWmCapabilitiesEvent struct {
	Capabilities []WmCapability
}

func (ToplevelConfigureEvent) toplevelEvent()       {}
func (ToplevelCloseEvent) toplevelEvent()           {}
func (ToplevelConfigureBoundsEvent) toplevelEvent() {}
func (ToplevelWmCapabilitiesEvent) toplevelEvent()  {}

func decodeToplevelEvent(c *wl.Client, obj wire.Object, msg *wire.MessageBuffer) (ToplevelEvent, error) {
	switch msg.Op() {
	case evToplevelConfigure:
		ev := ToplevelConfigureEvent{
			Width:  msg.ReadInt(),
			Height: msg.ReadInt(),
			States: uints[ToplevelState](msg.ReadArray()),
		}
		return ev, c.Decoded(msg, obj, "configure")
	case evToplevelClose:
		return ToplevelCloseEvent{}, c.Decoded(msg, obj, "close")
	case evToplevelConfigureBounds:
		ev := ToplevelConfigureBoundsEvent{
			Width:  msg.ReadInt(),
			Height: msg.ReadInt(),
		}
		return ev, c.Decoded(msg, obj, "configure_bounds")
	case evToplevelWmCapabilities:
		ev := ToplevelWmCapabilitiesEvent{
			Capabilities: uints[WmCapability](msg.ReadArray()),
		}
		return ev, c.Decoded(msg, obj, "wm_capabilities")
	default:
		return nil, wl.UnknownEvent(obj, msg)
	}
}

// uints splits a wire array into host-order 32-bit values. Trailing
// bytes that do not make up a whole value are ignored.
func uints[T ~uint32](data []byte) []T {
	s := make([]T, 0, len(data)/4)
	for len(data) >= 4 {
		s = append(s, bin.Get[T](data))
		data = data[4:]
	}
	return s
}
