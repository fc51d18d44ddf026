package transport

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
)

// ServerConnection represents a server-side connection to a client.
// Implemented by ServerConn.
type ServerConnection interface {
	ID() uuid.UUID
	RemoteAddr() net.Addr
	Send(data []byte) error
	Close() error
}

// ClientConnection represents a client-side connection to a device.
// Implemented by ClientConn.
type ClientConnection interface {
	ID() uuid.UUID
	RemoteAddr() net.Addr
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Done() <-chan struct{}
	Close() error
}

// Listener accepts connections.
// Implemented by Server.
type Listener interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ ServerConnection = (*ServerConn)(nil)
	_ ClientConnection = (*ClientConn)(nil)
	_ Listener         = (*Server)(nil)
	_ FrameReadWriter  = (*Framer)(nil)
)
