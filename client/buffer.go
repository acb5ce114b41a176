package wl

import "deedles.dev/wlframe/wire"

// Buffer is a wl_buffer.
type Buffer struct {
	BaseProxy

	// Release, if non-nil, is called when the server is no longer
	// reading from the buffer.
	Release func()
}

func (buf *Buffer) Interface() string {
	return BufferInterface
}

func (buf *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeBufferEvent(buf.client, buf, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case BufferReleaseEvent:
		if buf.Release != nil {
			buf.Release()
		}
		return nil

	default:
		panic(ev)
	}
}

func (buf *Buffer) Destroy() error {
	if !buf.MarkDestroyed() {
		return nil
	}

	msg := wire.NewMessage(buf, opBufferDestroy)
	msg.Method = "destroy"
	buf.client.Enqueue(msg)
	return nil
}
