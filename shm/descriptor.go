package shm

import (
	wl "deedles.dev/wlframe/client"
	"github.com/pkg/errors"
)

// Descriptor is the layout of the pixels of a buffer.
type Descriptor struct {
	Width, Height int

	// Stride is the number of bytes from the start of one row to the
	// start of the next.
	Stride int

	Format wl.ShmFormat
}

// NewDescriptor returns a descriptor for tightly packed rows of the
// given format.
func NewDescriptor(width, height int, format wl.ShmFormat) (Descriptor, error) {
	bpp, ok := format.BytesPerPixel()
	if !ok {
		return Descriptor{}, errors.Wrapf(ErrUnsupportedFormat, "unknown layout of %v", format)
	}

	d := Descriptor{
		Width:  width,
		Height: height,
		Stride: width * bpp,
		Format: format,
	}
	return d, d.Validate()
}

// Size is the number of bytes that the described pixels occupy.
func (d Descriptor) Size() int {
	return d.Height * d.Stride
}

// Validate checks that the descriptor is self-consistent. It does not
// check whether the server supports the format.
func (d Descriptor) Validate() error {
	bpp, ok := d.Format.BytesPerPixel()
	if !ok {
		return errors.Wrapf(ErrUnsupportedFormat, "unknown layout of %v", d.Format)
	}

	switch {
	case d.Width <= 0 || d.Height <= 0:
		return errors.Wrapf(ErrInvalidDescriptor, "size %vx%v", d.Width, d.Height)
	case int64(d.Width)*int64(bpp) > int64(d.Stride):
		return errors.Wrapf(ErrInvalidDescriptor, "stride %v shorter than %v pixels of %v", d.Stride, d.Width, d.Format)
	case int64(d.Stride)*int64(d.Height) > maxPoolSize:
		return errors.Wrapf(ErrSizeOverflow, "%v rows of %v bytes", d.Height, d.Stride)
	}
	return nil
}
