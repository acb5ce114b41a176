// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It frames messages, encodes and decodes their
// arguments, and carries them over a Transport.
package wire

import "fmt"

// MaxMessageSize is the largest message, including its header, that
// the 16-bit size field of the header can describe.
const MaxMessageSize = 1<<16 - 1

const headerSize = 8

// Object represents a Wayland protocol object.
type Object interface {
	// ID is the object's protocol ID. It is zero until the object has
	// been added to a connection.
	ID() uint32

	// SetID assigns the object's protocol ID.
	SetID(id uint32)

	// Interface is the protocol name of the object's interface, such
	// as "wl_surface".
	Interface() string

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// Delete is called when the server confirms that the object's ID
	// is no longer in use.
	Delete()
}

// Message is a single framed protocol message.
type Message struct {
	Sender uint32
	Op     uint16
	Data   []byte

	// FDs are file descriptors passed alongside the message. Whoever
	// holds the Message owns them.
	FDs []int
}

// Size is the total size of the message, including the 8 byte
// header.
func (m *Message) Size() int {
	return headerSize + len(m.Data)
}

func (m *Message) String() string {
	return fmt.Sprintf("message{sender: %v, op: %v, size: %v, fds: %v}", m.Sender, m.Op, m.Size(), len(m.FDs))
}

// Transport carries framed messages between a client and a server.
type Transport interface {
	// ReadMessage blocks until a full message is available.
	ReadMessage() (*Message, error)

	// WriteMessage sends msg. It takes ownership of msg.FDs and closes
	// them once they have been sent.
	WriteMessage(msg *Message) error

	// Close closes the transport, unblocking any pending ReadMessage.
	Close() error
}

// NewID is the argument of a request that creates an object of an
// interface that is not known in advance, such as wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}
