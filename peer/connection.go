package peer

import (
	"errors"
	"fmt"
	"net"
)

//go:generate mockery --name=Connection --output=automock --outpkg=automock --case=underscore
type Connection interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}

var _ Connection = (net.Conn)(nil)

var (
	ErrNotConnected     = errors.New("no connection to send the message")
	ErrAlreadyConnected = errors.New("transport is already in use")
	ErrFrameTooLarge    = errors.New("frame exceeds size limit")
)

// ProtocolError reports a frame that could not be decoded. The frame is
// dropped and the receive loop keeps running.
type ProtocolError struct {
	Frame string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
