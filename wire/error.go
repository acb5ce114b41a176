package wire

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMessageTooLarge is returned when a message, including its header,
// would not fit in the 16-bit size field.
var ErrMessageTooLarge = errors.New("message too large")

// UnknownOpError is returned by Object.Dispatch if it is given a
// message with an opcode that the object's interface does not define.
// Newer protocol versions add opcodes, so callers should treat it as
// non-fatal.
type UnknownOpError struct {
	Interface string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown event opcode for %v: %v", err.Interface, err.Op)
}

// UnknownSenderIDError describes an incoming message addressed from an
// object that the receiver has no record of, usually one that was
// destroyed locally before the server saw the destroy request.
type UnknownSenderIDError struct {
	Sender uint32
	Op     uint16
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v (opcode %v)", err.Sender, err.Op)
}
