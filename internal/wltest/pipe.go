// Package wltest provides an in-memory transport and a scripted stub
// compositor for testing Wayland clients without a running server.
package wltest

import (
	"io"
	"slices"
	"sync"

	"deedles.dev/wlframe/wire"
	"golang.org/x/sys/unix"
)

type pipe struct {
	done  chan struct{}
	close sync.Once
}

type pipeEnd struct {
	*pipe
	in  <-chan *wire.Message
	out chan<- *wire.Message
}

// Pipe returns two connected transports. Messages written to one are
// read from the other in order. Closing either end closes both, and
// file descriptors travel with their messages.
func Pipe() (client, server wire.Transport) {
	p := pipe{done: make(chan struct{})}
	c2s := make(chan *wire.Message, 64)
	s2c := make(chan *wire.Message, 64)

	return &pipeEnd{pipe: &p, in: s2c, out: c2s}, &pipeEnd{pipe: &p, in: c2s, out: s2c}
}

func (p *pipeEnd) ReadMessage() (*wire.Message, error) {
	select {
	case <-p.done:
		return nil, io.EOF
	case msg := <-p.in:
		return msg, nil
	}
}

func (p *pipeEnd) WriteMessage(msg *wire.Message) error {
	m := wire.Message{
		Sender: msg.Sender,
		Op:     msg.Op,
		Data:   slices.Clone(msg.Data),
		FDs:    msg.FDs,
	}

	select {
	case <-p.done:
		for _, fd := range msg.FDs {
			unix.Close(fd)
		}
		return io.ErrClosedPipe
	case p.out <- &m:
		return nil
	}
}

func (p *pipeEnd) Close() error {
	p.close.Do(func() { close(p.done) })
	return nil
}
