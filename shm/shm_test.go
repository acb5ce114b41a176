package shm

import (
	"context"
	"image/color"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/internal/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func setup(t *testing.T) (*wltest.Server, *wl.Client, *wl.Shm) {
	t.Helper()

	srv := wltest.Server{
		Globals: []wltest.Global{{Name: 1, Interface: "wl_shm", Version: 1}},
		Formats: []uint32{uint32(wl.ShmFormatXrgb8888)},
	}
	ct, st := wltest.Pipe()
	srv.Start(st)

	c := wl.NewClient(ct)
	c.Timeout = 5 * time.Second
	t.Cleanup(func() { c.Close() })

	registry := c.Display().GetRegistry()
	require.NoError(t, c.RoundTrip(context.Background()))

	binder := wl.NewBinder(registry)
	s := wl.NewShm(c)
	_, err := binder.Bind(s, 1, wl.ShmVersion)
	require.NoError(t, err)
	require.NoError(t, binder.Confirm(context.Background()))

	return &srv, c, s
}

func TestCreate(t *testing.T) {
	file, err := Create()
	require.NoError(t, err)
	defer file.Close()

	assert.True(t, strings.HasPrefix(file.Name(), "wlframe-shm-"))
	require.NoError(t, file.Truncate(4096))

	mmap, err := Map(file, 4096, unix.PROT_READ|unix.PROT_WRITE)
	require.NoError(t, err)
	mmap[4095] = 1
	require.NoError(t, mmap.Unmap())
}

func TestNewPoolSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		err  error
	}{
		{name: "valid", size: 4096},
		{name: "max", size: math.MaxInt32 + 1, err: ErrSizeOverflow},
		{name: "zero", size: 0, err: ErrInvalidSize},
		{name: "negative", size: -1, err: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, s := setup(t)

			pool, err := NewPool(s, tt.size)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			defer pool.Close()
			assert.Equal(t, tt.size, pool.Size())
			assert.Len(t, pool.Bytes(), tt.size)
		})
	}
}

func TestCreateBuffer(t *testing.T) {
	const (
		size   = 512 * 2048
		offset = 2048
	)

	tests := []struct {
		name   string
		offset int
		desc   Descriptor
		err    error
	}{
		{
			name: "whole pool",
			desc: Descriptor{Width: 512, Height: 512, Stride: 2048, Format: wl.ShmFormatXrgb8888},
		},
		{
			name:   "exactly fits",
			offset: offset,
			desc:   Descriptor{Width: 1, Height: 1, Stride: size - offset, Format: wl.ShmFormatXrgb8888},
		},
		{
			name:   "one byte too many",
			offset: offset,
			desc:   Descriptor{Width: 1, Height: 1, Stride: size - offset + 1, Format: wl.ShmFormatXrgb8888},
			err:    ErrOutOfBounds,
		},
		{
			name:   "negative offset",
			offset: -4,
			desc:   Descriptor{Width: 1, Height: 1, Stride: 4, Format: wl.ShmFormatXrgb8888},
			err:    ErrOutOfBounds,
		},
		{
			name: "format not advertised",
			desc: Descriptor{Width: 512, Height: 512, Stride: 2048, Format: wl.ShmFormatArgb8888},
			err:  ErrUnsupportedFormat,
		},
		{
			name: "unknown format",
			desc: Descriptor{Width: 512, Height: 512, Stride: 2048, Format: 0xdeadbeef},
			err:  ErrUnsupportedFormat,
		},
		{
			name: "short stride",
			desc: Descriptor{Width: 512, Height: 512, Stride: 2044, Format: wl.ShmFormatXrgb8888},
			err:  ErrInvalidDescriptor,
		},
		{
			name: "empty",
			desc: Descriptor{Width: 0, Height: 512, Stride: 2048, Format: wl.ShmFormatXrgb8888},
			err:  ErrInvalidDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, c, s := setup(t)
			pool, err := NewPool(s, size)
			require.NoError(t, err)

			buf, err := pool.CreateBuffer(tt.offset, tt.desc)
			require.NoError(t, c.RoundTrip(context.Background()))

			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Empty(t, srv.Methods("wl_shm_pool"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Unattached, buf.State())
			assert.Equal(t, []string{"create_buffer"}, srv.Methods("wl_shm_pool"))
			assert.Empty(t, srv.Violations())

			mem, err := buf.Bytes()
			require.NoError(t, err)
			assert.Len(t, mem, tt.desc.Size())
		})
	}
}

func TestCreateBufferOverlap(t *testing.T) {
	_, _, s := setup(t)
	pool, err := NewPool(s, 4096)
	require.NoError(t, err)

	d := Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888}
	first, err := pool.CreateBuffer(1024, d)
	require.NoError(t, err)

	_, err = pool.CreateBuffer(512, d)
	assert.ErrorIs(t, err, ErrOverlap)
	_, err = pool.CreateBuffer(2047, Descriptor{Width: 1, Height: 1, Stride: 4, Format: wl.ShmFormatXrgb8888})
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = pool.CreateBuffer(2048, d)
	assert.NoError(t, err)

	require.NoError(t, first.Destroy())
	_, err = pool.CreateBuffer(512, d)
	assert.NoError(t, err)
}

func TestBufferStates(t *testing.T) {
	srv, c, s := setup(t)
	pool, err := NewPool(s, 4096)
	require.NoError(t, err)
	buf, err := pool.CreateBuffer(0, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	var released *Buffer
	buf.Released = func(buf *Buffer) { released = buf }

	assert.Error(t, buf.MarkPresented())
	require.NoError(t, buf.MarkAttached())
	assert.Equal(t, Attached, buf.State())
	require.NoError(t, buf.MarkPresented())
	assert.Equal(t, Presented, buf.State())
	assert.True(t, buf.Busy())

	_, err = buf.Bytes()
	assert.ErrorIs(t, err, ErrBufferBusy)
	_, err = buf.Image()
	assert.ErrorIs(t, err, ErrBufferBusy)
	assert.ErrorIs(t, buf.MarkAttached(), ErrBufferBusy)

	require.NoError(t, c.RoundTrip(context.Background()))
	srv.Release(buf.Wl().ID())
	require.NoError(t, c.RoundTrip(context.Background()))

	assert.Equal(t, Released, buf.State())
	assert.Same(t, buf, released)
	_, err = buf.Bytes()
	assert.NoError(t, err)
	assert.NoError(t, buf.MarkAttached())
}

func TestBufferImage(t *testing.T) {
	_, _, s := setup(t)
	pool, err := NewPool(s, 4096)
	require.NoError(t, err)
	buf, err := pool.CreateBuffer(1024, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	img, err := buf.Image()
	require.NoError(t, err)
	assert.Equal(t, buf.Bounds(), img.Bounds())

	c := color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}
	img.Set(3, 2, c)
	assert.Equal(t, c, color.RGBAModel.Convert(img.At(3, 2)))

	mem := pool.Bytes()
	assert.NotEqual(t, make([]byte, 4), mem[1024+2*64+3*4:1024+2*64+4*4])
	assert.Equal(t, make([]byte, 1024), mem[:1024])
}

func TestPoolResize(t *testing.T) {
	srv, c, s := setup(t)
	pool, err := NewPool(s, 4096)
	require.NoError(t, err)
	buf, err := pool.CreateBuffer(0, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	mem, err := buf.Bytes()
	require.NoError(t, err)
	mem[0] = 0x7f

	require.NoError(t, pool.Resize(8192))
	assert.Equal(t, 8192, pool.Size())
	assert.ErrorIs(t, pool.Resize(4096), ErrInvalidSize)
	assert.ErrorIs(t, pool.Resize(math.MaxInt32+1), ErrSizeOverflow)

	mem, err = buf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7f), mem[0])

	_, err = pool.CreateBuffer(4096, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	require.NoError(t, c.RoundTrip(context.Background()))
	assert.Equal(t, []string{"create_buffer", "resize", "create_buffer"}, srv.Methods("wl_shm_pool"))
}

func TestPoolClose(t *testing.T) {
	srv, c, s := setup(t)
	pool, err := NewPool(s, 4096)
	require.NoError(t, err)
	_, err = pool.CreateBuffer(0, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.Nil(t, pool.Bytes())
	assert.ErrorIs(t, pool.file.Close(), os.ErrClosed)

	_, err = pool.CreateBuffer(0, Descriptor{Width: 16, Height: 16, Stride: 64, Format: wl.ShmFormatXrgb8888})
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, c.RoundTrip(context.Background()))
	assert.Equal(t, []string{"destroy"}, srv.Methods("wl_buffer"))
	assert.Equal(t, []string{"create_buffer", "destroy"}, srv.Methods("wl_shm_pool"))
}

func TestClientCloseReleasesPool(t *testing.T) {
	_, c, s := setup(t)
	pool, err := NewPool(s, 512*2048)
	require.NoError(t, err)
	_, err = pool.CreateBuffer(0, Descriptor{Width: 512, Height: 512, Stride: 2048, Format: wl.ShmFormatXrgb8888})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Nil(t, pool.Bytes())
	assert.ErrorIs(t, pool.file.Close(), os.ErrClosed)
	assert.NoError(t, pool.Close())
}

func TestChain(t *testing.T) {
	srv, c, s := setup(t)
	d, err := NewDescriptor(16, 16, wl.ShmFormatXrgb8888)
	require.NoError(t, err)

	chain, err := NewChain(s, 2, d)
	require.NoError(t, err)
	assert.Equal(t, 2*d.Size(), chain.Pool().Size())

	first, err := chain.Acquire()
	require.NoError(t, err)
	require.NoError(t, first.MarkAttached())
	require.NoError(t, first.MarkPresented())

	second, err := chain.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, second.MarkAttached())
	require.NoError(t, second.MarkPresented())

	_, err = chain.Acquire()
	assert.ErrorIs(t, err, ErrBufferBusy)

	require.NoError(t, c.RoundTrip(context.Background()))
	srv.Release(first.Wl().ID())
	require.NoError(t, c.RoundTrip(context.Background()))

	buf, err := chain.Acquire()
	require.NoError(t, err)
	assert.Same(t, first, buf)
}

func TestChainResize(t *testing.T) {
	srv, c, s := setup(t)
	ctx := context.Background()
	d, err := NewDescriptor(16, 16, wl.ShmFormatXrgb8888)
	require.NoError(t, err)
	chain, err := NewChain(s, 2, d)
	require.NoError(t, err)

	var released []*Buffer
	chain.Released = func(buf *Buffer) { released = append(released, buf) }

	old := chain.Buffers()
	require.NoError(t, old[1].MarkAttached())
	require.NoError(t, old[1].MarkPresented())

	big, err := NewDescriptor(32, 32, wl.ShmFormatXrgb8888)
	require.NoError(t, err)
	require.NoError(t, chain.Resize(big))

	bufs := chain.Buffers()
	require.Len(t, bufs, 2)
	assert.Equal(t, 2*d.Size(), bufs[0].Offset())
	assert.Equal(t, 2*d.Size()+2*big.Size(), chain.Pool().Size())

	require.NoError(t, c.RoundTrip(ctx))
	srv.Release(old[1].Wl().ID())
	require.NoError(t, c.RoundTrip(ctx))
	require.NoError(t, c.Flush())
	require.NoError(t, c.RoundTrip(ctx))

	assert.Equal(t, []string{"destroy", "destroy"}, srv.Methods("wl_buffer"))
	assert.Equal(t, []*Buffer{old[1]}, released)
	assert.Equal(t, 0, chain.Pool().fit(2*d.Size()))
}

func TestChainResizeReusesPool(t *testing.T) {
	srv, c, s := setup(t)
	ctx := context.Background()

	small, err := NewDescriptor(16, 16, wl.ShmFormatXrgb8888)
	require.NoError(t, err)
	large, err := NewDescriptor(17, 16, wl.ShmFormatXrgb8888)
	require.NoError(t, err)

	chain, err := NewChain(s, 2, small)
	require.NoError(t, err)

	var (
		prev    *Buffer
		reused  bool
		maxSize int
	)
	for i := 0; i < 20; i++ {
		d := large
		if i%2 == 1 {
			d = small
		}
		require.NoError(t, chain.Resize(d))

		buf, err := chain.Acquire()
		require.NoError(t, err)
		require.NoError(t, buf.MarkAttached())
		require.NoError(t, buf.MarkPresented())
		if i > 0 && buf.Offset() == 0 {
			reused = true
		}

		require.NoError(t, c.RoundTrip(ctx))
		if prev != nil {
			srv.Release(prev.Wl().ID())
			require.NoError(t, c.RoundTrip(ctx))
		}
		prev = buf

		maxSize = max(maxSize, chain.Pool().Size())
	}

	assert.True(t, reused, "start of pool never reused")
	assert.LessOrEqual(t, maxSize, 5*large.Size())
}

func TestChainResizeFailure(t *testing.T) {
	_, _, s := setup(t)
	d, err := NewDescriptor(16, 16, wl.ShmFormatXrgb8888)
	require.NoError(t, err)
	chain, err := NewChain(s, 2, d)
	require.NoError(t, err)

	huge, err := NewDescriptor(16384, 16384, wl.ShmFormatXrgb8888)
	require.NoError(t, err)
	assert.ErrorIs(t, chain.Resize(huge), ErrSizeOverflow)

	assert.Empty(t, chain.Buffers())
	_, err = chain.Acquire()
	assert.ErrorIs(t, err, ErrEmptyChain)

	require.NoError(t, chain.Resize(d))
	buf, err := chain.Acquire()
	require.NoError(t, err)
	_, err = buf.Image()
	assert.NoError(t, err)
	assert.Equal(t, 2*d.Size(), chain.Pool().Size())
}
