package wl_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/internal/wltest"
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, srv *wltest.Server) *wl.Client {
	t.Helper()

	ct, st := wltest.Pipe()
	srv.Start(st)

	c := wl.NewClient(ct)
	c.Timeout = 5 * time.Second
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRoundTripDispatchesEverything(t *testing.T) {
	srv := wltest.Server{
		Globals: []wltest.Global{
			{Name: 1, Interface: "wl_shm", Version: 1},
			{Name: 2, Interface: "wl_compositor", Version: 5},
			{Name: 3, Interface: "xdg_wm_base", Version: 4},
		},
		Delay: 5 * time.Millisecond,
	}
	c := connect(t, &srv)

	var order []uint32
	registry := c.Display().GetRegistry()
	registry.Global = func(g wl.Global) { order = append(order, g.Name) }

	require.NoError(t, c.RoundTrip(context.Background()))
	assert.Equal(t, []uint32{1, 2, 3}, order)
	assert.Len(t, registry.Globals(), 3)
	assert.Empty(t, srv.Violations())
}

func TestRoundTripTimeout(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)
	c.Timeout = 50 * time.Millisecond
	srv.Mute(true)

	err := c.RoundTrip(context.Background())
	assert.ErrorIs(t, err, wl.ErrConnectionLost)
	assert.ErrorIs(t, c.Err(), wl.ErrConnectionLost)

	err = c.Flush()
	assert.ErrorIs(t, err, wl.ErrConnectionLost)
}

func TestRoundTripContext(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)
	srv.Mute(true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.RoundTrip(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, c.Err())
}

func TestUnrecognizedEventsIgnored(t *testing.T) {
	srv := wltest.Server{
		Globals: []wltest.Global{{Name: 1, Interface: "wl_shm", Version: 1}},
	}
	c := connect(t, &srv)
	registry := c.Display().GetRegistry()
	require.NoError(t, c.RoundTrip(context.Background()))

	tests := []struct {
		name   string
		sender uint32
		op     uint16
		data   []byte
	}{
		{name: "unknown opcode", sender: 1, op: 7},
		{name: "unknown sender", sender: 999, op: 0},
		{name: "truncated global", sender: registry.ID(), op: 0, data: []byte{1, 0, 0, 0}},
		{name: "truncated remove", sender: registry.ID(), op: 1, data: []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv.Send(tt.sender, tt.op, tt.data)
			require.NoError(t, c.RoundTrip(context.Background()))
			assert.Len(t, registry.Globals(), 1)
			assert.NoError(t, c.Err())
		})
	}
}

func TestProtocolErrorIsFatal(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)

	var reported *wl.ProtocolError
	c.Display().Error = func(err *wl.ProtocolError) { reported = err }

	msg := wire.NewMessage(c.Display(), 0)
	msg.WriteUint(3)
	msg.WriteUint(2)
	msg.WriteString("invalid object")
	m, err := msg.Build()
	require.NoError(t, err)
	srv.Send(1, 0, m.Data)

	err = c.RoundTrip(context.Background())
	var perr *wl.ProtocolError
	require.True(t, errors.As(err, &perr), "error: %v", err)
	assert.Equal(t, wl.ProtocolError{ObjectID: 3, Code: 2, Message: "invalid object"}, *perr)
	assert.Same(t, perr, reported)
}

func TestRunExit(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Exit()
	}()

	assert.NoError(t, c.Run(context.Background()))
	assert.True(t, c.Exiting())
}

func TestRunContext(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.NoError(t, c.Run(ctx))
}

func TestRunConnectionLost(t *testing.T) {
	ct, st := wltest.Pipe()
	c := wl.NewClient(ct)
	defer c.Close()

	st.Close()
	err := c.Run(context.Background())
	assert.ErrorIs(t, err, wl.ErrConnectionLost)
}

type closer struct {
	name  string
	order *[]string
}

func (c closer) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestCloseReleasesResources(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)

	var order []string
	c.AddCloser(closer{"a", &order})
	c.AddCloser(closer{"b", &order})
	removed := closer{"c", &order}
	c.AddCloser(removed)
	c.RemoveCloser(removed)

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"b", "a"}, order)

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"b", "a"}, order)

	c.AddCloser(closer{"late", &order})
	assert.Equal(t, []string{"b", "a", "late"}, order)

	assert.ErrorIs(t, c.Dispatch(context.Background()), wl.ErrClosed)
	<-srv.Done()
}

var _ io.Closer = closer{}

type countCloser struct {
	n *atomic.Int32
}

func (c countCloser) Close() error {
	c.n.Add(1)
	return nil
}

func TestAddCloserDuringClose(t *testing.T) {
	var srv wltest.Server
	c := connect(t, &srv)

	var closed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddCloser(countCloser{&closed})
		}()
	}
	require.NoError(t, c.Close())
	wg.Wait()

	assert.Equal(t, int32(50), closed.Load())
}
