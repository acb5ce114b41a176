// Package wl is a Wayland client. A Client owns the connection and
// runs every event handler on the goroutine that dispatches it.
package wl

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"deedles.dev/wlframe/internal/cq"
	"deedles.dev/wlframe/internal/debug"
	"deedles.dev/wlframe/internal/objstore"
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Client is a connection to a Wayland server.
//
// Outgoing requests and incoming events share a single queue, so
// nothing is sent until the queue is dispatched by Dispatch, Flush,
// RoundTrip, Wait, or Run. Event handlers run on the goroutine that
// calls one of those methods.
type Client struct {
	// Log receives diagnostics. It defaults to the package-wide
	// logger.
	Log logrus.FieldLogger

	// Timeout bounds how long RoundTrip and Wait block for the server
	// before it is considered unresponsive, which ends the session
	// with ErrConnectionLost. Zero means no limit.
	Timeout time.Duration

	done    chan struct{}
	close   sync.Once
	conn    wire.Transport
	objects *objstore.Store
	queue   *cq.Queue[func() error]
	display *Display
	exit    atomic.Bool

	m       sync.Mutex
	closed  bool
	closers []io.Closer
	err     error
}

// Dial connects to the Wayland server indicated by the environment.
func Dial() (*Client, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, errors.Wrap(err, "dial display")
	}

	return NewClient(c), nil
}

// NewClient starts a client over an existing transport. The client
// takes ownership of conn.
func NewClient(conn wire.Transport) *Client {
	client := Client{
		Log:     debug.Log,
		done:    make(chan struct{}),
		conn:    conn,
		objects: objstore.New(1),
		queue:   cq.New[func() error](),
	}
	client.display = newDisplay(&client)
	client.Add(client.display)
	go client.listen()

	return &client
}

func (c *Client) listen() {
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.queue.Push(func() error {
				return errors.Wrapf(ErrConnectionLost, "read: %v", err)
			})
			return
		}

		if !c.queue.Push(func() error { return c.dispatch(msg) }) {
			wire.NewMessageBuffer(msg).Close()
			return
		}
	}
}

// Display returns the wl_display singleton.
func (c *Client) Display() *Display {
	return c.display
}

// Add registers a proxy, assigning it a new ID.
func (c *Client) Add(obj wire.Object) {
	c.objects.Add(obj)
}

func (c *Client) Get(id uint32) wire.Object {
	return c.objects.Get(id)
}

// Enqueue queues a request to be sent the next time that the queue is
// dispatched.
func (c *Client) Enqueue(msg *wire.MessageBuilder) {
	ok := c.queue.Push(func() error { return c.send(msg) })
	if !ok {
		msg.Discard()
	}
}

func (c *Client) send(msg *wire.MessageBuilder) error {
	c.Log.Debugf(" -> %v", msg)

	m, err := msg.Build()
	if err != nil {
		return errors.Wrapf(err, "build %v", msg)
	}

	err = c.conn.WriteMessage(m)
	if err != nil {
		return errors.Wrapf(ErrConnectionLost, "write %v: %v", msg, err)
	}
	return nil
}

func (c *Client) dispatch(m *wire.Message) error {
	msg := wire.NewMessageBuffer(m)
	defer msg.Close()

	obj := c.objects.Get(msg.Sender())
	if obj == nil {
		c.Log.WithError(wire.UnknownSenderIDError{Sender: msg.Sender(), Op: msg.Op()}).Debug("dropping event")
		return nil
	}

	err := obj.Dispatch(msg)
	if err == nil {
		return nil
	}

	var unknown wire.UnknownOpError
	switch {
	case errors.As(err, &unknown):
		c.Log.WithFields(logrus.Fields{
			"object": obj.ID(),
			"opcode": unknown.Op,
		}).Debugf("ignoring unrecognized %v event", unknown.Interface)
		return nil

	case errors.Is(err, ErrProtocolViolation):
		c.Log.WithError(err).WithField("object", obj.ID()).Warn("ignoring malformed event")
		return nil
	}

	return err
}

// Decoded finishes decoding an event. It logs the event if decoding
// succeeded and otherwise reports a protocol violation.
func (c *Client) Decoded(msg *wire.MessageBuffer, obj wire.Object, event string) error {
	err := msg.Err()
	if err != nil {
		return errors.Wrapf(ErrProtocolViolation, "decode %v.%v: %v", obj.Interface(), event, err)
	}

	c.Log.Debugf("%v", msg.Debug(obj, event))
	return nil
}

// flush runs a batch from the queue. The first fatal error ends the
// session.
func (c *Client) flush(batch []func() error) error {
	errs := cq.Flush(batch)
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs[1:] {
		c.Log.WithError(err).Debug("additional error in batch")
	}
	return c.fail(errs[0])
}

func (c *Client) fail(err error) error {
	c.m.Lock()
	if c.err == nil {
		c.err = err
	}
	err = c.err
	c.m.Unlock()

	c.Log.WithError(err).Error("session ended")
	c.Close()
	return err
}

// Err returns the error that ended the session, if any.
func (c *Client) Err() error {
	c.m.Lock()
	defer c.m.Unlock()

	return c.err
}

func (c *Client) closedErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (c *Client) next(ctx context.Context, timeout <-chan time.Time) error {
	if err := c.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	case <-timeout:
		return c.fail(errors.Wrapf(ErrConnectionLost, "no reply from server within %v", c.Timeout))
	case batch := <-c.queue.Get():
		return c.flush(batch)
	}
}

// Dispatch blocks until the queue has something in it and then
// processes everything queued, sending requests and running event
// handlers in order.
func (c *Client) Dispatch(ctx context.Context) error {
	return c.next(ctx, nil)
}

// Wait dispatches the queue until cond returns true. If the client's
// Timeout elapses first, the session ends with ErrConnectionLost.
func (c *Client) Wait(ctx context.Context, cond func() bool) error {
	var timeout <-chan time.Time
	if c.Timeout > 0 {
		t := time.NewTimer(c.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	for !cond() {
		err := c.next(ctx, timeout)
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush sends every request queued so far, along with handling any
// events that arrived before them.
func (c *Client) Flush() error {
	var flushed bool
	if !c.queue.Push(func() error { flushed = true; return nil }) {
		return c.closedErr()
	}

	for !flushed {
		err := c.next(context.Background(), nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// RoundTrip sends every queued request and blocks until the server
// has processed them and every event that they caused has been
// dispatched.
func (c *Client) RoundTrip(ctx context.Context) error {
	var done bool
	c.display.Sync(func(uint32) { done = true })
	return c.Wait(ctx, func() bool { return done })
}

// Run dispatches events until Exit is called, ctx is canceled, or the
// session fails. Only the latter results in an error. If Run returns
// because of Exit, requests queued by the last handlers to run are
// sent before it does.
func (c *Client) Run(ctx context.Context) error {
	for !c.exit.Load() {
		err := c.next(ctx, nil)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}

	err := c.Flush()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Exit makes Run return after the current batch. It is safe to call
// from any goroutine.
func (c *Client) Exit() {
	c.exit.Store(true)
	c.queue.Push(func() error { return nil })
}

// Exiting reports whether Exit has been called.
func (c *Client) Exiting() bool {
	return c.exit.Load()
}

// AddCloser registers a resource to be released when the client is
// closed. Resources are closed in the reverse order of registration.
// If the client is already closed, cl is closed immediately.
func (c *Client) AddCloser(cl io.Closer) {
	c.m.Lock()
	if c.closed {
		c.m.Unlock()
		cl.Close()
		return
	}
	c.closers = append(c.closers, cl)
	c.m.Unlock()
}

// RemoveCloser unregisters a resource that was released on its own.
func (c *Client) RemoveCloser(cl io.Closer) {
	c.m.Lock()
	defer c.m.Unlock()

	for i, v := range c.closers {
		if v == cl {
			c.closers = append(c.closers[:i], c.closers[i+1:]...)
			return
		}
	}
}

// Close releases every registered resource and closes the connection.
// Queued requests that have not been sent are dropped.
func (c *Client) Close() error {
	var err error
	c.close.Do(func() {
		close(c.done)
		c.queue.Stop()

		c.m.Lock()
		c.closed = true
		closers := c.closers
		c.closers = nil
		c.m.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
		err = multierr.Append(err, c.conn.Close())
	})
	return err
}
