package shm

import (
	wl "deedles.dev/wlframe/client"
	"github.com/pkg/errors"
)

// Chain is a fixed number of equally sized buffers sharing one pool,
// so that a new frame can be drawn while the compositor still holds an
// older one.
type Chain struct {
	// Released, if non-nil, is called when the compositor releases any
	// of the chain's buffers, including ones that a Resize has already
	// replaced. Those are destroyed before Released is called.
	Released func(*Buffer)

	pool    *Pool
	n       int
	desc    Descriptor
	buffers []*Buffer
	next    int
}

// NewChain creates a pool holding n buffers laid out as d.
func NewChain(s *wl.Shm, n int, d Descriptor) (*Chain, error) {
	if n <= 0 {
		return nil, errors.Errorf("chain of %v buffers", n)
	}
	err := d.Validate()
	if err != nil {
		return nil, err
	}

	size := int64(n) * int64(d.Size())
	if size > maxPoolSize {
		return nil, errors.Wrapf(ErrSizeOverflow, "%v buffers of %v bytes", n, d.Size())
	}

	pool, err := NewPool(s, int(size))
	if err != nil {
		return nil, err
	}

	c := Chain{pool: pool, n: n}
	err = c.carve(0, n, d)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &c, nil
}

func (c *Chain) carve(start, n int, d Descriptor) error {
	buffers := make([]*Buffer, 0, n)
	for i := 0; i < n; i++ {
		buf, err := c.pool.CreateBuffer(start+i*d.Size(), d)
		if err != nil {
			for _, buf := range buffers {
				buf.Destroy()
			}
			return err
		}
		buf.Released = c.release
		buffers = append(buffers, buf)
	}

	c.desc = d
	c.buffers = buffers
	c.next = 0
	return nil
}

func (c *Chain) release(buf *Buffer) {
	if c.Released != nil {
		c.Released(buf)
	}
}

func (c *Chain) retire(buf *Buffer) {
	buf.Destroy()
	c.release(buf)
}

func (c *Chain) Pool() *Pool {
	return c.pool
}

func (c *Chain) Descriptor() Descriptor {
	return c.desc
}

func (c *Chain) Buffers() []*Buffer {
	return c.buffers
}

// Acquire returns a buffer that is safe to draw into. Buffers are
// handed out in rotation. If every buffer is presented, Acquire fails
// with ErrBufferBusy and should be retried after dispatching events.
// After a failed Resize the chain is empty and Acquire fails with
// ErrEmptyChain until a Resize succeeds.
func (c *Chain) Acquire() (*Buffer, error) {
	if len(c.buffers) == 0 {
		return nil, ErrEmptyChain
	}

	for i := range c.buffers {
		buf := c.buffers[(c.next+i)%len(c.buffers)]
		if !buf.Busy() {
			c.next = (c.next + i + 1) % len(c.buffers)
			return buf, nil
		}
	}
	return nil, errors.Wrapf(ErrBufferBusy, "all %v buffers presented", len(c.buffers))
}

// Resize replaces the chain's buffers with ones laid out as d. Old
// buffers that are still presented are destroyed once the compositor
// releases them. The new buffers go in the lowest part of the pool that
// those leave free, and the pool only grows if no such gap is large
// enough.
func (c *Chain) Resize(d Descriptor) error {
	err := d.Validate()
	if err != nil {
		return err
	}

	for _, buf := range c.buffers {
		if !buf.Busy() {
			buf.Destroy()
			continue
		}
		buf.Released = c.retire
	}
	c.buffers = nil
	c.next = 0

	total := int64(c.n) * int64(d.Size())
	if total > maxPoolSize {
		return errors.Wrapf(ErrSizeOverflow, "%v buffers of %v bytes", c.n, d.Size())
	}
	start := c.pool.fit(int(total))
	size := int64(start) + total
	if size > maxPoolSize {
		return errors.Wrapf(ErrSizeOverflow, "%v buffers of %v bytes after offset %v", c.n, d.Size(), start)
	}
	if int(size) > c.pool.Size() {
		err := c.pool.Resize(int(size))
		if err != nil {
			return err
		}
	}

	return c.carve(start, c.n, d)
}

// Close closes the chain's pool.
func (c *Chain) Close() error {
	return c.pool.Close()
}
