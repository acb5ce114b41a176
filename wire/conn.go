package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"deedles.dev/wlframe/internal/bin"
	"golang.org/x/sys/unix"
)

// maxFDs is the most descriptors libwayland will attach to a single
// sendmsg call.
const maxFDs = 28

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok || v == "" {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(xdgRuntimeDir(), v)
}

// Conn is a Transport over a Unix domain socket.
type Conn struct {
	conn *net.UnixConn

	fdm    sync.Mutex
	fds    []int
	closed bool

	wmu sync.Mutex
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
	}
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()
		os.Unsetenv("WAYLAND_SOCKET")

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("WAYLAND_SOCKET fd %v is not a Unix socket", fd)
		}
		return NewConn(uc), nil
	}

	path := SocketPath()
	s, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", path, err)
	}
	return NewConn(s), nil
}

// Close closes the underlying connection and any descriptors that were
// received but never claimed. It is safe to call while another
// goroutine is blocked in ReadMessage. Descriptors that arrive after
// Close are closed as they are received.
func (c *Conn) Close() error {
	c.fdm.Lock()
	if c.closed {
		c.fdm.Unlock()
		return nil
	}
	c.closed = true
	fds := c.fds
	c.fds = nil
	c.fdm.Unlock()

	for _, fd := range fds {
		unix.Close(fd)
	}
	return c.conn.Close()
}

// ReadMessage reads the next message from the socket. Descriptors that
// arrived while the message was being read are attached to it.
func (c *Conn) ReadMessage() (*Message, error) {
	var header [headerSize]byte
	err := c.readFull(header[:])
	if err != nil {
		return nil, fmt.Errorf("read message header: %w", err)
	}

	so := bin.Get[uint32](header[4:])
	msg := Message{
		Sender: bin.Get[uint32](header[:4]),
		Op:     uint16(so & 0xFFFF),
	}
	size := int(so >> 16)
	if size < headerSize {
		return nil, fmt.Errorf("invalid message size %v for sender %v", size, msg.Sender)
	}

	msg.Data = make([]byte, size-headerSize)
	err = c.readFull(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}

	c.fdm.Lock()
	msg.FDs, c.fds = c.fds, nil
	c.fdm.Unlock()
	return &msg, nil
}

func (c *Conn) readFull(buf []byte) error {
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))
	for len(buf) > 0 {
		n, oobn, _, _, err := c.conn.ReadMsgUnix(buf, oob)
		if oobn > 0 {
			ferr := c.readFDs(oob[:oobn])
			if ferr != nil {
				return ferr
			}
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.EOF
		}
		buf = buf[n:]
	}
	return nil
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.claim(fds)
	}
	return nil
}

func (c *Conn) claim(fds []int) {
	c.fdm.Lock()
	defer c.fdm.Unlock()

	if c.closed {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return
	}
	c.fds = append(c.fds, fds...)
}

// WriteMessage sends msg over the socket, closing its descriptors once
// the kernel has duplicated them into the message.
func (c *Conn) WriteMessage(msg *Message) error {
	defer func() {
		for _, fd := range msg.FDs {
			unix.Close(fd)
		}
	}()

	size := msg.Size()
	if size > MaxMessageSize {
		return ErrMessageTooLarge
	}

	buf := make([]byte, size)
	bin.Put(buf[:4], msg.Sender)
	bin.Put(buf[4:8], (uint32(size)<<16)|uint32(msg.Op))
	copy(buf[headerSize:], msg.Data)

	var oob []byte
	if len(msg.FDs) > 0 {
		oob = unix.UnixRights(msg.FDs...)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	n, _, err := c.conn.WriteMsgUnix(buf, oob, nil)
	if err != nil {
		return err
	}
	if n < len(buf) {
		_, err = c.conn.Write(buf[n:])
	}
	return err
}
