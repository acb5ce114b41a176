package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deedles.dev/wlframe/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuffer holds message data that has been read from a
// Transport but not yet decoded.
type MessageBuffer struct {
	sender  uint32
	op      uint16
	size    int
	data    bytes.Reader
	fds     []int
	fdindex int
	err     error
	args    []any
}

// NewMessageBuffer prepares msg for decoding. The MessageBuffer takes
// ownership of the message's descriptors; those that are not claimed
// via ReadFile are closed by Close.
func NewMessageBuffer(msg *Message) *MessageBuffer {
	r := MessageBuffer{
		sender: msg.Sender,
		op:     msg.Op,
		size:   msg.Size(),
		fds:    msg.FDs,
	}
	r.data.Reset(msg.Data)
	return &r
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() int {
	return r.size
}

// Err returns the first error encountered while decoding, if any.
// Running out of data before all arguments are read is reported as
// io.ErrUnexpectedEOF.
func (r *MessageBuffer) Err() error {
	if errors.Is(r.err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return r.err
}

// Close releases any descriptors that were not claimed by ReadFile.
func (r *MessageBuffer) Close() {
	for _, fd := range r.fds[r.fdindex:] {
		unix.Close(fd)
	}
	r.fdindex = len(r.fds)
}

func (r *MessageBuffer) ReadInt() (v int32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[int32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() (v uint32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[uint32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadNewID() NewID {
	return NewID{
		Interface: r.ReadString(),
		Version:   r.ReadUint(),
		ID:        r.ReadUint(),
	}
}

func (r *MessageBuffer) ReadString() string {
	if r.err != nil {
		return ""
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return ""
	}
	if length == 0 {
		r.args = append(r.args, "")
		return ""
	}
	pad := padding(length)
	if int64(length+pad) > int64(r.data.Len()) {
		r.err = io.ErrUnexpectedEOF
		return ""
	}

	var str strings.Builder
	str.Grow(int(length + pad))
	_, r.err = io.CopyN(&str, &r.data, int64(length+pad))
	if r.err != nil {
		return ""
	}
	v := str.String()
	if v[length-1] != 0 {
		r.err = errors.New("string is not null-terminated")
		return ""
	}

	r.args = append(r.args, v[:length-1])
	return v[:length-1]
}

func (r *MessageBuffer) ReadArray() []byte {
	if r.err != nil {
		return nil
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return nil
	}
	pad := padding(length)
	if int64(length+pad) > int64(r.data.Len()) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}

	buf := make([]byte, length+pad)
	_, r.err = io.ReadFull(&r.data, buf)
	if r.err != nil {
		return nil
	}

	r.args = append(r.args, buf[:length])
	return buf[:length]
}

// ReadFile claims the next descriptor attached to the message. The
// caller owns the returned file.
func (r *MessageBuffer) ReadFile() *os.File {
	if r.err != nil {
		return nil
	}

	if r.fdindex >= len(r.fds) {
		r.err = errors.New("no more file descriptors")
		return nil
	}

	f := os.NewFile(uintptr(r.fds[r.fdindex]), "")
	r.fdindex++
	r.args = append(r.args, f)
	return f
}

// Debug formats the decoded message as a method call on sender.
func (r *MessageBuffer) Debug(sender Object, method string) string {
	args := make([]string, 0, len(r.args))
	for _, arg := range r.args {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, fmt.Sprintf("fd %v", arg.Fd()))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}

	return fmt.Sprintf("%v.%v(%v)", objectString(sender), method, strings.Join(args, ", "))
}
