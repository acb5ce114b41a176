// Package present puts pixels on the screen. A Session binds the
// globals that doing so requires and a Window presents shared memory
// buffers as a desktop window.
package present

import (
	"context"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/xdg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Version ranges that globals are bound with.
const (
	minShmVersion        = 1
	minCompositorVersion = 1
	minWmBaseVersion     = 1
)

// Session holds the globals needed to present windows.
type Session struct {
	Client     *wl.Client
	Registry   *wl.Registry
	Shm        *wl.Shm
	Compositor *wl.Compositor
	WmBase     *xdg.WmBase
}

// NewSession enumerates the server's globals and binds the ones that a
// session needs. When it returns, the formats supported by the shm
// global are known.
func NewSession(ctx context.Context, c *wl.Client) (*Session, error) {
	s := Session{
		Client:     c,
		Registry:   c.Display().GetRegistry(),
		Shm:        wl.NewShm(c),
		Compositor: wl.NewCompositor(c),
		WmBase:     xdg.NewWmBase(c),
	}

	err := c.RoundTrip(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate globals")
	}
	for _, g := range s.Registry.Sorted() {
		c.Log.WithFields(logrus.Fields{
			"name":      g.Name,
			"interface": g.Interface,
			"version":   g.Version,
		}).Debug("global")
	}

	binder := wl.NewBinder(s.Registry)
	binds := []struct {
		p        wl.Proxy
		min, max uint32
	}{
		{s.Shm, minShmVersion, wl.ShmVersion},
		{s.Compositor, minCompositorVersion, wl.CompositorVersion},
		{s.WmBase, minWmBaseVersion, xdg.WmBaseVersion},
	}
	for _, b := range binds {
		_, err := binder.Bind(b.p, b.min, b.max)
		if err != nil {
			return nil, errors.Wrap(err, "bind")
		}
	}

	err = binder.Confirm(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bind")
	}

	formats := s.Shm.Formats()
	if len(formats) == 0 {
		c.Log.Warn("server advertised no pixel formats")
	}
	for _, f := range formats {
		c.Log.WithField("format", f).Debug("pixel format")
	}

	return &s, nil
}
