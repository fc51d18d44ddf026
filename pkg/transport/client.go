package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultConnectTimeout bounds dialing plus the TLS handshake.
const DefaultConnectTimeout = 10 * time.Second

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
)

// ClientConfig configures outgoing connections.
type ClientConfig struct {
	// TLSConfig enables TLS 1.3. If nil, plain TCP is used.
	TLSConfig *TLSConfig

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout is applied when the dial context has no deadline
	// (default: 10s).
	ConnectTimeout time.Duration

	// Logger receives connection and frame events.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultClientConfig returns a plain TCP client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Dial connects to a device at address ("host:port").
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &ClientConn{
		conn:    conn,
		id:      uuid.New(),
		closeCh: make(chan struct{}),
		logger:  config.Logger,
	}

	if config.TLSConfig != nil {
		tlsConf, err := NewClientTLSConfig(config.TLSConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		tlsConn := tls.Client(conn, tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		state := tlsConn.ConnectionState()
		if err := VerifyConnection(state); err != nil {
			tlsConn.Close()
			return nil, fmt.Errorf("connection verification failed: %w", err)
		}
		c.conn = tlsConn
		c.tlsState = &state
	}

	c.framer = NewFramerWithMaxSize(c.conn, config.MaxMessageSize)
	if c.logger != nil {
		c.framer.SetLogger(c.logger, c.id.String())
		c.logger.Debug("connected", "conn", c.id, "remote", address, "tls", c.tlsState != nil)
	}
	return c, nil
}

// ClientConn is a connection from a client to a device.
type ClientConn struct {
	conn     net.Conn
	framer   *Framer
	tlsState *tls.ConnectionState
	id       uuid.UUID
	logger   *slog.Logger
	closeCh  chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// ID returns the connection identifier used in log records.
func (c *ClientConn) ID() uuid.UUID {
	return c.id
}

// TLSState returns the TLS connection state, or false for plain TCP.
func (c *ClientConn) TLSState() (tls.ConnectionState, bool) {
	if c.tlsState == nil {
		return tls.ConnectionState{}, false
	}
	return *c.tlsState, true
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send sends a message to the device.
func (c *ClientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	return c.framer.WriteFrame(data)
}

// Receive receives a message with timeout. A zero timeout blocks until a
// message arrives or the connection is closed. A timed-out read may leave a
// partial frame in the stream; callers should close the connection after one.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	data, err := c.framer.ReadFrame()
	if err != nil {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}
	}
	return data, err
}

// Done is closed when Close is called.
func (c *ClientConn) Done() <-chan struct{} {
	return c.closeCh
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
		if c.logger != nil {
			c.logger.Debug("disconnected", "conn", c.id)
		}
	})
	return err
}

// IsTimeout reports whether err is a network deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
