package wl

import "deedles.dev/wlframe/wire"

// Interface names and the highest versions that this package knows
// how to speak.
const (
	DisplayInterface    = "wl_display"
	RegistryInterface   = "wl_registry"
	CallbackInterface   = "wl_callback"
	CompositorInterface = "wl_compositor"
	SurfaceInterface    = "wl_surface"
	ShmInterface        = "wl_shm"
	ShmPoolInterface    = "wl_shm_pool"
	BufferInterface     = "wl_buffer"

	CompositorVersion = 5
	ShmVersion        = 1
)

// Request opcodes.
const (
	opDisplaySync        = 0
	opDisplayGetRegistry = 1

	opRegistryBind = 0

	opCompositorCreateSurface = 0

	opSurfaceDestroy      = 0
	opSurfaceAttach       = 1
	opSurfaceDamage       = 2
	opSurfaceCommit       = 6
	opSurfaceDamageBuffer = 9

	opShmCreatePool = 0

	opShmPoolCreateBuffer = 0
	opShmPoolDestroy      = 1
	opShmPoolResize       = 2

	opBufferDestroy = 0
)

// Event opcodes.
const (
	evDisplayError    = 0
	evDisplayDeleteID = 1

	evRegistryGlobal       = 0
	evRegistryGlobalRemove = 1

	evCallbackDone = 0

	evSurfaceEnter = 0
	evSurfaceLeave = 1

	evShmFormat = 0

	evBufferRelease = 0
)

// surfaceDamageBufferSince is the first wl_surface version with
// damage_buffer.
const surfaceDamageBufferSince = 4

// DisplayEvent is an event sent to a wl_display.
type DisplayEvent interface{ displayEvent() }

type DisplayErrorEvent struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

type DisplayDeleteIDEvent struct {
	ID uint32
}

func (DisplayErrorEvent) displayEvent()    {}
func (DisplayDeleteIDEvent) displayEvent() {}

func decodeDisplayEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (DisplayEvent, error) {
	switch msg.Op() {
	case evDisplayError:
		ev := DisplayErrorEvent{
			ObjectID: msg.ReadUint(),
			Code:     msg.ReadUint(),
			Message:  msg.ReadString(),
		}
		return ev, c.Decoded(msg, obj, "error")
	case evDisplayDeleteID:
		ev := DisplayDeleteIDEvent{ID: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "delete_id")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// RegistryEvent is an event sent to a wl_registry.
type RegistryEvent interface{ registryEvent() }

type RegistryGlobalEvent struct {
	Name      uint32
	Interface string
	Version   uint32
}

type RegistryGlobalRemoveEvent struct {
	Name uint32
}

func (RegistryGlobalEvent) registryEvent()       {}
func (RegistryGlobalRemoveEvent) registryEvent() {}

func decodeRegistryEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (RegistryEvent, error) {
	switch msg.Op() {
	case evRegistryGlobal:
		ev := RegistryGlobalEvent{
			Name:      msg.ReadUint(),
			Interface: msg.ReadString(),
			Version:   msg.ReadUint(),
		}
		return ev, c.Decoded(msg, obj, "global")
	case evRegistryGlobalRemove:
		ev := RegistryGlobalRemoveEvent{Name: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "global_remove")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// CallbackEvent is an event sent to a wl_callback.
type CallbackEvent interface{ callbackEvent() }

type CallbackDoneEvent struct {
	Data uint32
}

func (CallbackDoneEvent) callbackEvent() {}

func decodeCallbackEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (CallbackEvent, error) {
	switch msg.Op() {
	case evCallbackDone:
		ev := CallbackDoneEvent{Data: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "done")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// SurfaceEvent is an event sent to a wl_surface.
type SurfaceEvent interface{ surfaceEvent() }

type SurfaceEnterEvent struct {
	Output uint32
}

type SurfaceLeaveEvent struct {
	Output uint32
}

func (SurfaceEnterEvent) surfaceEvent() {}
func (SurfaceLeaveEvent) surfaceEvent() {}

func decodeSurfaceEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (SurfaceEvent, error) {
	switch msg.Op() {
	case evSurfaceEnter:
		ev := SurfaceEnterEvent{Output: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "enter")
	case evSurfaceLeave:
		ev := SurfaceLeaveEvent{Output: msg.ReadUint()}
		return ev, c.Decoded(msg, obj, "leave")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// ShmEvent is an event sent to a wl_shm.
type ShmEvent interface{ shmEvent() }

type ShmFormatEvent struct {
	Format ShmFormat
}

func (ShmFormatEvent) shmEvent() {}

func decodeShmEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (ShmEvent, error) {
	switch msg.Op() {
	case evShmFormat:
		ev := ShmFormatEvent{Format: ShmFormat(msg.ReadUint())}
		return ev, c.Decoded(msg, obj, "format")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// BufferEvent is an event sent to a wl_buffer.
type BufferEvent interface{ bufferEvent() }

type BufferReleaseEvent struct{}

func (BufferReleaseEvent) bufferEvent() {}

func decodeBufferEvent(c *Client, obj wire.Object, msg *wire.MessageBuffer) (BufferEvent, error) {
	switch msg.Op() {
	case evBufferRelease:
		return BufferReleaseEvent{}, c.Decoded(msg, obj, "release")
	default:
		return nil, UnknownEvent(obj, msg)
	}
}

// UnknownEvent returns the error that a Dispatch method reports for an
// opcode it does not recognize.
func UnknownEvent(obj wire.Object, msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{
		Interface: obj.Interface(),
		Op:        msg.Op(),
	}
}
