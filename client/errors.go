package wl

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no advertised global matches a
	// requested interface.
	ErrNotFound = errors.New("global not found")

	// ErrVersionMismatch is returned when a global is advertised at a
	// version lower than the minimum that was requested.
	ErrVersionMismatch = errors.New("global version too old")

	// ErrGlobalGone is returned when a global is removed by the server
	// while a bind to it is still pending.
	ErrGlobalGone = errors.New("global removed")

	// ErrConnectionLost is returned when the connection to the server
	// fails or the server stops responding in time. It is fatal.
	ErrConnectionLost = errors.New("connection lost")

	// ErrProtocolViolation marks a malformed event. Such events are
	// logged and dropped.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrClosed is returned by operations on a closed Client.
	ErrClosed = errors.New("client closed")

	// ErrDestroyed is returned when a request is made on a proxy whose
	// object has been destroyed, or on behalf of such a parent.
	ErrDestroyed = errors.New("object destroyed")
)

// ProtocolError is a fatal error reported by the server via
// wl_display.error.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: object %v, code %v: %v", err.ObjectID, err.Code, err.Message)
}

// ProtocolViolationf returns an error wrapping ErrProtocolViolation.
func ProtocolViolationf(format string, args ...any) error {
	return errors.Wrapf(ErrProtocolViolation, format, args...)
}
