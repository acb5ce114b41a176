package shm

import (
	"math"
	"os"
	"slices"
	"sync"

	wl "deedles.dev/wlframe/client"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const maxPoolSize = math.MaxInt32

// Pool is a region of shared memory from which buffers are carved. It
// is registered with the client that its wl_shm belongs to and is
// released when that client is closed if it hasn't been already.
type Pool struct {
	shm    *wl.Shm
	client *wl.Client

	m       sync.Mutex
	pool    *wl.ShmPool
	file    *os.File
	mmap    Mmap
	buffers []*Buffer
	closed  bool
}

// NewPool creates a pool of size bytes shared with the server through
// s.
func NewPool(s *wl.Shm, size int) (pool *Pool, err error) {
	if size > maxPoolSize {
		return nil, errors.Wrapf(ErrSizeOverflow, "%v bytes", size)
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%v bytes", size)
	}

	file, err := Create()
	if err != nil {
		return nil, errors.Wrap(err, "create shared memory")
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	err = file.Truncate(int64(size))
	if err != nil {
		return nil, errors.Wrap(err, "truncate shared memory")
	}

	mmap, err := Map(file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return nil, err
	}

	p, err := s.CreatePool(file, int32(size))
	if err != nil {
		mmap.Unmap()
		return nil, errors.Wrap(err, "create pool")
	}

	pool = &Pool{
		shm:    s,
		client: s.Client(),
		pool:   p,
		file:   file,
		mmap:   mmap,
	}
	pool.client.AddCloser(pool)

	return pool, nil
}

// Size returns the size of the pool in bytes.
func (p *Pool) Size() int {
	p.m.Lock()
	defer p.m.Unlock()

	return len(p.mmap)
}

// Bytes returns the pool's mapped memory. The slice is invalidated by
// Resize and Close.
func (p *Pool) Bytes() []byte {
	p.m.Lock()
	defer p.m.Unlock()

	return p.mmap
}

// CreateBuffer carves a buffer with layout d out of the pool starting
// at offset. Everything about the buffer is checked before the server
// hears of it: the format must have been advertised by the server, the
// buffer must fit in the pool, and it must not overlap any other live
// buffer from the same pool.
func (p *Pool) CreateBuffer(offset int, d Descriptor) (*Buffer, error) {
	err := d.Validate()
	if err != nil {
		return nil, err
	}
	if !p.shm.HasFormat(d.Format) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%v not advertised by server", d.Format)
	}

	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	end := int64(offset) + int64(d.Size())
	if offset < 0 || end > int64(len(p.mmap)) {
		return nil, errors.Wrapf(ErrOutOfBounds, "bytes [%v, %v) of %v", offset, end, len(p.mmap))
	}
	for _, other := range p.buffers {
		if int64(other.offset) < end && offset < other.end() {
			return nil, errors.Wrapf(ErrOverlap, "bytes [%v, %v) and [%v, %v)", offset, end, other.offset, other.end())
		}
	}

	wbuf, err := p.pool.CreateBuffer(int32(offset), int32(d.Width), int32(d.Height), int32(d.Stride), d.Format)
	if err != nil {
		return nil, err
	}

	buf := newBuffer(p, wbuf, offset, d)
	p.buffers = append(p.buffers, buf)
	return buf, nil
}

func (p *Pool) forget(buf *Buffer) {
	p.m.Lock()
	defer p.m.Unlock()

	i := slices.Index(p.buffers, buf)
	if i >= 0 {
		p.buffers = slices.Delete(p.buffers, i, i+1)
	}
}

// fit returns the lowest offset at which size bytes can be carved
// without overlapping a live buffer. The result may lie partly past the
// end of the pool, in which case the pool must be grown first.
func (p *Pool) fit(size int) int {
	p.m.Lock()
	defer p.m.Unlock()

	live := slices.Clone(p.buffers)
	slices.SortFunc(live, func(b1, b2 *Buffer) int { return b1.offset - b2.offset })

	var offset int
	for _, buf := range live {
		if buf.offset-offset >= size {
			return offset
		}
		offset = max(offset, buf.end())
	}
	return offset
}

// Resize grows the pool to size bytes. Buffers remain valid, but
// slices previously returned by Bytes or by a Buffer do not.
func (p *Pool) Resize(size int) error {
	if size > maxPoolSize {
		return errors.Wrapf(ErrSizeOverflow, "%v bytes", size)
	}

	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return ErrClosed
	}
	if size < len(p.mmap) {
		return errors.Wrapf(ErrInvalidSize, "shrink from %v to %v bytes", len(p.mmap), size)
	}
	if size == len(p.mmap) {
		return nil
	}

	err := p.file.Truncate(int64(size))
	if err != nil {
		return errors.Wrap(err, "truncate shared memory")
	}

	mmap, err := Map(p.file, size, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return err
	}
	err = p.mmap.Unmap()
	if err != nil {
		mmap.Unmap()
		return errors.Wrap(err, "unmap")
	}
	p.mmap = mmap

	return p.pool.Resize(int32(size))
}

// Close destroys the pool and its buffers, unmaps its memory and
// closes its file. All of that happens before Close returns. Calling
// Close more than once is a no-op.
func (p *Pool) Close() error {
	p.m.Lock()
	if p.closed {
		p.m.Unlock()
		return nil
	}
	p.closed = true
	buffers := p.buffers
	p.buffers = nil
	mmap := p.mmap
	p.mmap = nil
	p.m.Unlock()

	for _, buf := range buffers {
		buf.destroy()
	}
	p.pool.Destroy()

	err := mmap.Unmap()
	if err != nil {
		err = errors.Wrap(err, "unmap")
	}
	if cerr := p.file.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "close shared memory")
	}

	p.client.RemoveCloser(p)
	return err
}
