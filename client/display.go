package wl

import (
	"deedles.dev/wlframe/wire"
)

// Display is the wl_display singleton. It always has ID 1.
type Display struct {
	BaseProxy

	// Error, if non-nil, is called with every fatal protocol error
	// reported by the server before the session ends.
	Error func(*ProtocolError)

	registry *Registry
}

func newDisplay(client *Client) *Display {
	var display Display
	display.Init(client, 1)
	return &display
}

func (display *Display) Interface() string {
	return DisplayInterface
}

func (display *Display) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeDisplayEvent(display.client, display, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case DisplayErrorEvent:
		perr := &ProtocolError{
			ObjectID: ev.ObjectID,
			Code:     ev.Code,
			Message:  ev.Message,
		}
		if display.Error != nil {
			display.Error(perr)
		}
		return perr

	case DisplayDeleteIDEvent:
		display.client.objects.Delete(ev.ID)
		return nil

	default:
		panic(ev)
	}
}

// Sync asks the server to call done once every request sent before
// it has been processed.
func (display *Display) Sync(done func(data uint32)) *Callback {
	callback := Callback{Done: done}
	callback.Init(display.client, 1)
	display.client.Add(&callback)

	msg := wire.NewMessage(display, opDisplaySync)
	msg.Method = "sync"
	msg.WriteObject(&callback)
	display.client.Enqueue(msg)

	return &callback
}

// GetRegistry returns the client's registry, creating it on the first
// call.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := newRegistry(display.client)
	display.client.Add(registry)

	msg := wire.NewMessage(display, opDisplayGetRegistry)
	msg.Method = "get_registry"
	msg.WriteObject(registry)
	display.client.Enqueue(msg)

	display.registry = registry
	return registry
}
