package shm

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/ximage/format"
	"github.com/pkg/errors"
)

// BufferState is the point that a buffer has reached in its
// presentation cycle.
type BufferState int

const (
	// Unattached buffers have never been attached to a surface.
	Unattached BufferState = iota

	// Attached buffers are the pending content of a surface but have
	// not been committed yet.
	Attached

	// Presented buffers have been committed and may be read by the
	// compositor at any time. They must not be modified.
	Presented

	// Released buffers have been handed back by the compositor.
	Released
)

func (s BufferState) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	case Presented:
		return "presented"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("BufferState(%d)", int(s))
	}
}

// Buffer is a region of a Pool that holds pixels in a known layout.
type Buffer struct {
	// Released, if non-nil, is called when the compositor releases the
	// buffer.
	Released func(*Buffer)

	pool   *Pool
	buf    *wl.Buffer
	offset int
	desc   Descriptor

	m         sync.Mutex
	state     BufferState
	destroyed bool
}

func newBuffer(pool *Pool, wbuf *wl.Buffer, offset int, d Descriptor) *Buffer {
	buf := Buffer{
		pool:   pool,
		buf:    wbuf,
		offset: offset,
		desc:   d,
	}
	wbuf.Release = buf.release
	return &buf
}

func (buf *Buffer) release() {
	buf.m.Lock()
	if buf.state != Presented {
		buf.pool.client.Log.WithField("state", buf.state).Debug("release of buffer that was not presented")
	}
	buf.state = Released
	buf.m.Unlock()

	if buf.Released != nil {
		buf.Released(buf)
	}
}

func (buf *Buffer) end() int {
	return buf.offset + buf.desc.Size()
}

// Wl returns the underlying wl_buffer.
func (buf *Buffer) Wl() *wl.Buffer {
	return buf.buf
}

func (buf *Buffer) Pool() *Pool {
	return buf.pool
}

func (buf *Buffer) Offset() int {
	return buf.offset
}

func (buf *Buffer) Descriptor() Descriptor {
	return buf.desc
}

func (buf *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, buf.desc.Width, buf.desc.Height)
}

func (buf *Buffer) State() BufferState {
	buf.m.Lock()
	defer buf.m.Unlock()

	return buf.state
}

// Busy reports whether the compositor may be reading the buffer.
func (buf *Buffer) Busy() bool {
	return buf.State() == Presented
}

func (buf *Buffer) check() error {
	if buf.destroyed {
		return wl.ErrDestroyed
	}
	if buf.state == Presented {
		return errors.Wrapf(ErrBufferBusy, "%v@%v", buf.buf.Interface(), buf.buf.ID())
	}
	return nil
}

// Bytes returns the buffer's pixel memory for writing. It fails with
// ErrBufferBusy while the buffer is presented. The slice is invalidated
// if the pool is resized or closed.
func (buf *Buffer) Bytes() ([]byte, error) {
	buf.m.Lock()
	defer buf.m.Unlock()

	err := buf.check()
	if err != nil {
		return nil, err
	}

	mem := buf.pool.Bytes()
	if mem == nil {
		return nil, ErrClosed
	}
	return mem[buf.offset:buf.end():buf.end()], nil
}

// Image returns an image backed by the buffer's memory. It is only
// available for 32-bit formats. If rows are padded, the padding shows
// up as extra columns on the right of the image.
func (buf *Buffer) Image() (draw.Image, error) {
	switch buf.desc.Format {
	case wl.ShmFormatArgb8888, wl.ShmFormatXrgb8888:
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "no image view of %v", buf.desc.Format)
	}

	pix, err := buf.Bytes()
	if err != nil {
		return nil, err
	}

	return &format.Image{
		Format: format.ARGB8888,
		Rect:   image.Rect(0, 0, buf.desc.Stride/4, buf.desc.Height),
		Pix:    pix,
	}, nil
}

// MarkAttached records that the buffer is about to be attached to a
// surface. It fails with ErrBufferBusy if the buffer is presented.
func (buf *Buffer) MarkAttached() error {
	buf.m.Lock()
	defer buf.m.Unlock()

	err := buf.check()
	if err != nil {
		return err
	}

	buf.state = Attached
	return nil
}

// MarkPresented records that the surface that the buffer is attached
// to has been committed.
func (buf *Buffer) MarkPresented() error {
	buf.m.Lock()
	defer buf.m.Unlock()

	if buf.destroyed {
		return wl.ErrDestroyed
	}
	if buf.state != Attached {
		return errors.Errorf("present %v buffer", buf.state)
	}

	buf.state = Presented
	return nil
}

// Destroy destroys the buffer, freeing its part of the pool for reuse.
func (buf *Buffer) Destroy() error {
	buf.pool.forget(buf)
	buf.destroy()
	return nil
}

func (buf *Buffer) destroy() {
	buf.m.Lock()
	defer buf.m.Unlock()

	if buf.destroyed {
		return
	}
	buf.destroyed = true
	buf.buf.Destroy()
}
