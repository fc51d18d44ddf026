package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ServerConfig configures a listening device.
type ServerConfig struct {
	// TLSConfig enables TLS 1.3. If nil, plain TCP is used.
	TLSConfig *TLSConfig

	// Address to listen on (e.g., ":47808" or "127.0.0.1:0").
	Address string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Logger receives connection and frame events.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called from the connection's read loop for every frame.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when an error occurs. conn is nil for listener
	// and handshake errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts connections from reading clients.
type Server struct {
	config   ServerConfig
	tlsConf  *tls.Config
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	s := &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
	if config.TLSConfig != nil {
		tlsConf, err := NewServerTLSConfig(config.TLSConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConf = tlsConf
	}
	return s, nil
}

// Start starts listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.debugLog("listening", "addr", listener.Addr().String(), "tls", s.tlsConf != nil)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	netConn := conn
	if s.tlsConf != nil {
		tlsConn := tls.Server(conn, s.tlsConf)
		if err := tlsConn.HandshakeContext(s.ctx); err != nil {
			conn.Close()
			s.reportError(nil, fmt.Errorf("TLS handshake failed: %w", err))
			return
		}
		if err := VerifyConnection(tlsConn.ConnectionState()); err != nil {
			tlsConn.Close()
			s.reportError(nil, err)
			return
		}
		netConn = tlsConn
	}

	sconn := &ServerConn{
		conn:       netConn,
		framer:     NewFramerWithMaxSize(netConn, s.config.MaxMessageSize),
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		id:         uuid.New(),
	}
	if s.config.Logger != nil {
		sconn.framer.SetLogger(s.config.Logger, sconn.id.String())
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		netConn.Close()
		return
	}
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	s.debugLog("client connected", "conn", sconn.id, "remote", sconn.remoteAddr.String())
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()
	sconn.Close()

	s.debugLog("client disconnected", "conn", sconn.id)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) reportError(conn *ServerConn, err error) {
	s.debugLog("transport error", "error", err)
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// ServerConn is one accepted client connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	id         uuid.UUID
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ID returns the unique connection identifier.
func (c *ServerConn) ID() uuid.UUID {
	return c.id
}

// Send sends a message to the client. Safe for concurrent use.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.server.ctx.Done():
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				if !errors.Is(err, io.EOF) && c.server.running.Load() {
					c.server.reportError(c, err)
				}
			}
			return
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}
