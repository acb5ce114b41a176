package wl

import "deedles.dev/wlframe/wire"

// Callback is a one-shot wl_callback.
type Callback struct {
	BaseProxy

	// Done is called when the callback fires. The server destroys the
	// callback afterwards.
	Done func(data uint32)
}

func (c *Callback) Interface() string {
	return CallbackInterface
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeCallbackEvent(c.client, c, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case CallbackDoneEvent:
		c.MarkDestroyed()
		if c.Done != nil {
			c.Done(ev.Data)
		}
		return nil

	default:
		panic(ev)
	}
}
