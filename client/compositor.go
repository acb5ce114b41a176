package wl

import "deedles.dev/wlframe/wire"

// Compositor is a bound wl_compositor.
type Compositor struct {
	BaseProxy
}

// NewCompositor returns an unbound compositor proxy for use with a
// Binder.
func NewCompositor(client *Client) *Compositor {
	var c Compositor
	c.Init(client, 0)
	return &c
}

func (c *Compositor) Interface() string {
	return CompositorInterface
}

func (c *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	return UnknownEvent(c, msg)
}

// CreateSurface creates a new surface with no role.
func (c *Compositor) CreateSurface() (*Surface, error) {
	if c.Destroyed() {
		return nil, ErrDestroyed
	}

	s := Surface{compositor: c}
	s.Init(c.client, c.version)
	c.client.Add(&s)

	msg := wire.NewMessage(c, opCompositorCreateSurface)
	msg.Method = "create_surface"
	msg.Args = []any{&s}
	msg.WriteObject(&s)
	c.client.Enqueue(msg)

	return &s, nil
}
