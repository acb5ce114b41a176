package wire

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"deedles.dev/wlframe/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	// Args is the original set of arguments passed to the function from
	// which this MessageBuilder was generated. It is included purely
	// for debugging purposes.
	Args []any

	sender Object
	op     uint16
	data   bytes.Buffer
	fds    []int
	err    error
}

func NewMessage(sender Object, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
	}
}

func (mb *MessageBuilder) Sender() Object {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

// WriteObject writes the ID of v, or 0 if v is nil.
func (mb *MessageBuilder) WriteObject(v Object) {
	var id uint32
	if !isNil(v) {
		id = v.ID()
	}
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	if mb.err != nil {
		return
	}

	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v) + 1)
	mb.WriteUint(length)
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	mb.pad(length)
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	if mb.err != nil {
		return
	}

	mb.WriteUint(uint32(len(v)))
	mb.data.Write(v)
	mb.pad(uint32(len(v)))
}

// WriteFile duplicates the descriptor of v and attaches the duplicate
// to the message. The caller keeps ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}

	sc, err := v.SyscallConn()
	if err != nil {
		mb.err = err
		return
	}
	cerr := sc.Control(func(fd uintptr) {
		dup, err := unix.FcntlInt(fd, unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			mb.err = err
			return
		}
		mb.fds = append(mb.fds, dup)
	})
	if mb.err == nil {
		mb.err = cerr
	}
}

func (mb *MessageBuilder) pad(length uint32) {
	for i := uint32(0); i < padding(length); i++ {
		mb.data.WriteByte(0)
	}
}

// Build finishes the message. The MessageBuilder should not be used
// again after this method is called. If an error occurred while
// writing arguments, any descriptors that were attached are closed.
func (mb *MessageBuilder) Build() (*Message, error) {
	if mb.err == nil && headerSize+mb.data.Len() > MaxMessageSize {
		mb.err = ErrMessageTooLarge
	}
	if mb.err != nil {
		mb.Discard()
		return nil, mb.err
	}

	msg := Message{
		Sender: mb.sender.ID(),
		Op:     mb.op,
		Data:   mb.data.Bytes(),
		FDs:    mb.fds,
	}
	mb.fds = nil
	return &msg, nil
}

// Discard closes any descriptors attached to the message without
// sending it.
func (mb *MessageBuilder) Discard() {
	for _, fd := range mb.fds {
		unix.Close(fd)
	}
	mb.fds = nil
}

func (mb *MessageBuilder) String() string {
	args := make([]string, 0, len(mb.Args))
	for _, arg := range mb.Args {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, fmt.Sprintf("fd %v", arg.Fd()))
		case Object:
			args = append(args, objectString(arg))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}

	return fmt.Sprintf("%v.%v(%v)", objectString(mb.sender), mb.Method, strings.Join(args, ", "))
}

func objectString(obj Object) string {
	if isNil(obj) {
		return "nil"
	}
	return fmt.Sprintf("%v@%v", obj.Interface(), obj.ID())
}

func isNil(v any) bool {
	return (v == nil) || ((*[2]uintptr)(unsafe.Pointer(&v))[1] == 0)
}
