// wlframe opens a window and draws into it with shared memory until the
// window is closed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/config"
	"deedles.dev/wlframe/internal/debug"
	"deedles.dev/wlframe/present"
	"deedles.dev/wlframe/shm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type state struct {
	ctx    context.Context
	cfg    config.Config
	log    logrus.FieldLogger
	client *wl.Client

	session *present.Session
	chain   *shm.Chain
	window  *present.Window
	stale   bool
	err     error
}

func (state *state) init() error {
	timeout, err := state.cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	client, err := wl.Dial()
	if err != nil {
		return err
	}
	client.Timeout = timeout
	client.Log = state.log
	return state.setup(client)
}

func (state *state) setup(client *wl.Client) error {
	state.client = client

	format, err := state.cfg.ShmFormat()
	if err != nil {
		return err
	}

	client.Display().Error = func(err *wl.ProtocolError) {
		state.log.WithFields(logrus.Fields{
			"object": err.ObjectID,
			"code":   err.Code,
		}).Error(err.Message)
	}

	state.session, err = present.NewSession(state.ctx, client)
	if err != nil {
		return errors.Wrap(err, "set up session")
	}
	if !state.session.Shm.HasFormat(format) {
		return errors.Wrapf(shm.ErrUnsupportedFormat, "server does not support %v", format)
	}

	d, err := shm.NewDescriptor(state.cfg.Width, state.cfg.Height, format)
	if err != nil {
		return err
	}
	state.chain, err = shm.NewChain(state.session.Shm, state.cfg.Buffers, d)
	if err != nil {
		return errors.Wrap(err, "allocate buffers")
	}
	state.chain.Released = state.released

	state.window, err = state.session.NewWindow(state.cfg.Title, state.cfg.AppID)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	state.window.Configure = state.configure
	state.window.Close = func() {
		state.log.Info("window closed")
		client.Exit()
	}

	return nil
}

func (state *state) configure(width, height int) {
	d := state.chain.Descriptor()
	if width == 0 {
		width = state.cfg.Width
	}
	if height == 0 {
		height = state.cfg.Height
	}

	if width != d.Width || height != d.Height {
		nd, err := shm.NewDescriptor(width, height, d.Format)
		if err != nil {
			state.fail(err)
			return
		}
		err = state.chain.Resize(nd)
		if err != nil {
			state.fail(errors.Wrap(err, "resize buffers"))
			return
		}
		state.log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("resized")
	}

	err := state.draw()
	if err != nil {
		state.fail(err)
	}
}

// released redraws a frame that was skipped because every buffer was
// busy.
func (state *state) released(*shm.Buffer) {
	if !state.stale {
		return
	}

	err := state.draw()
	if err != nil {
		state.fail(err)
	}
}

func (state *state) draw() error {
	buf, err := state.chain.Acquire()
	if err != nil {
		if errors.Is(err, shm.ErrBufferBusy) {
			state.log.Debug("no free buffer, deferring frame")
			state.stale = true
			return nil
		}
		return err
	}
	state.stale = false

	img, err := buf.Image()
	if err != nil {
		return err
	}
	paint(img, buf.Bounds())

	return state.window.Present(state.ctx, buf)
}

func (state *state) fail(err error) {
	if state.err == nil {
		state.err = err
	}
	state.client.Exit()
}

func (state *state) run() error {
	err := state.client.Run(state.ctx)
	if err != nil {
		return err
	}
	return state.err
}

func (state *state) close() {
	if state.window != nil {
		state.window.Destroy()
		state.client.Flush()
	}
	if state.client != nil {
		state.client.Close()
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := debug.Log

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	state := state{
		ctx: ctx,
		cfg: cfg,
		log: log,
	}
	defer state.close()

	err = state.init()
	if err != nil {
		state.close()
		log.WithError(err).Fatal("init")
	}

	err = state.run()
	if err != nil {
		state.close()
		log.WithError(err).Fatal("run")
	}
}
