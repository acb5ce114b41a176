// Package bin contains utilities for dealing with binary
// representations in host byte order, which is the byte order used by
// the Wayland wire protocol.
package bin

import (
	"io"
	"unsafe"
)

// Word is any 32-bit type that can appear as a protocol argument.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

func Value[T Word](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

// Get decodes the first four bytes of data. It panics if data is
// shorter than that.
func Get[T Word](data []byte) T {
	return Value[T]([4]byte(data[:4]))
}

// Put encodes v into the first four bytes of data.
func Put[T Word](data []byte, v T) {
	b := Bytes(v)
	copy(data[:4], b[:])
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
