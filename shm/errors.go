package shm

import "github.com/pkg/errors"

var (
	// ErrSizeOverflow is returned for pool sizes that do not fit in the
	// protocol's signed 32-bit size field.
	ErrSizeOverflow = errors.New("pool size overflows int32")

	// ErrInvalidSize is returned for pool sizes that are not positive or
	// that would shrink an existing pool.
	ErrInvalidSize = errors.New("invalid pool size")

	// ErrOutOfBounds is returned when a buffer would extend past the end
	// of its pool.
	ErrOutOfBounds = errors.New("buffer out of pool bounds")

	// ErrOverlap is returned when a buffer would share bytes with
	// another live buffer in the same pool.
	ErrOverlap = errors.New("buffer overlaps another buffer")

	// ErrUnsupportedFormat is returned for pixel formats that the server
	// has not advertised.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrInvalidDescriptor is returned for buffer layouts that are
	// inconsistent, such as a stride shorter than a row of pixels.
	ErrInvalidDescriptor = errors.New("invalid buffer descriptor")

	// ErrBufferBusy is returned when a buffer is used while the
	// compositor may still be reading from it. The buffer becomes
	// usable again once the compositor releases it.
	ErrBufferBusy = errors.New("buffer busy")

	// ErrEmptyChain is returned by a Chain that has no buffers because
	// its last Resize failed.
	ErrEmptyChain = errors.New("chain has no buffers")

	// ErrClosed is returned by operations on a closed pool.
	ErrClosed = errors.New("pool closed")
)
