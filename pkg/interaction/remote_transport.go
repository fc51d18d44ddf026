package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/readprop"
	"github.com/bacstack/bacnet-go/pkg/transport"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

// ErrTransportClosed is returned by ReadBatch after Close.
var ErrTransportClosed = errors.New("transport is closed")

// TransportConfig configures a Transport.
type TransportConfig struct {
	// Client configures the connections to devices.
	Client transport.ClientConfig

	// RequestTimeout bounds each request (default: 5s).
	RequestTimeout time.Duration

	// Logger is used for logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives every frame exchanged with devices.
	// If nil, nothing is captured.
	ProtocolLogger capture.Logger
}

// DefaultTransportConfig returns the default transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Client:         transport.DefaultClientConfig(),
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Transport sends batch reads to devices over pkg/transport connections,
// keeping one connection per device address.
//
// A device that cannot be reached or does not answer in time, or a different
// device answering at the address, is reported as readprop.ErrTransportTimeout
// so the reader rediscovers it. Rejects, aborts and decode failures are
// returned as they are.
type Transport struct {
	config TransportConfig

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool

	dials singleflight.Group
}

// peer is the connection to one address.
type peer struct {
	address string
	conn    *transport.ClientConn
	client  *Client
	rec     *capture.Recorder
}

// recordingSender captures requests on their way out.
type recordingSender struct {
	conn *transport.ClientConn
	rec  *capture.Recorder
}

func (s *recordingSender) Send(data []byte) error {
	s.rec.Request(capture.DirectionOut, data)
	return s.conn.Send(data)
}

// NewTransport creates a Transport.
func NewTransport(config TransportConfig) *Transport {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Client.Logger == nil {
		config.Client.Logger = config.Logger
	}
	return &Transport{
		config: config,
		peers:  make(map[string]*peer),
	}
}

// ReadBatch implements readprop.Transport.
func (t *Transport) ReadBatch(ctx context.Context, dev *discovery.RemoteDevice, refs []model.ObjectPropertyReference) ([]readprop.BatchItem, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	p, err := t.peer(ctx, dev.Address)
	if err != nil {
		return nil, t.classify(dev, err)
	}

	var items []readprop.BatchItem
	if dev.ReadMultiple {
		items, err = t.readMultiple(ctx, p, dev, refs)
	} else {
		items, err = t.readEach(ctx, p, dev, refs)
	}
	if err != nil {
		return nil, t.classify(dev, err)
	}

	t.debugLog("batch read",
		"deviceID", dev.ID,
		"address", dev.Address,
		"requested", len(refs),
		"answered", len(items))
	return items, nil
}

func (t *Transport) readMultiple(ctx context.Context, p *peer, dev *discovery.RemoteDevice, refs []model.ObjectPropertyReference) ([]readprop.BatchItem, error) {
	resp, err := p.client.ReadMultiple(ctx, dev.ID, refs)
	if err != nil {
		return nil, err
	}
	items := make([]readprop.BatchItem, 0, resp.Count())
	for _, res := range resp.Results {
		object := res.Object()
		for _, item := range res.Items {
			items = append(items, readprop.BatchItem{
				Ref:    model.ObjectPropertyReference{Object: object, Ref: item.Reference()},
				Result: item.Result(),
			})
		}
	}
	return items, nil
}

// readEach reads refs one by one for devices without ReadPropertyMultiple.
func (t *Transport) readEach(ctx context.Context, p *peer, dev *discovery.RemoteDevice, refs []model.ObjectPropertyReference) ([]readprop.BatchItem, error) {
	items := make([]readprop.BatchItem, 0, len(refs))
	for _, ref := range refs {
		res, err := p.client.ReadProperty(ctx, dev.ID, ref.Object, ref.Ref)
		if err != nil {
			return nil, err
		}
		items = append(items, readprop.BatchItem{Ref: ref, Result: res})
	}
	return items, nil
}

// classify maps a failure to readprop.ErrTransportTimeout when the device
// did not answer.
func (t *Transport) classify(dev *discovery.RemoteDevice, err error) error {
	var (
		se      *StatusError
		dialErr *dialError
	)
	switch {
	case errors.Is(err, ErrTransportClosed):
		return err
	case errors.As(err, &dialErr),
		errors.Is(err, ErrRequestTimeout),
		errors.Is(err, ErrClientClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &se) && (se.Status == wire.StatusTimeout || se.Status == wire.StatusUnknownDevice):
		return fmt.Errorf("%s: %w: %w", dev, readprop.ErrTransportTimeout, err)
	}
	return fmt.Errorf("%s: %w", dev, err)
}

// dialError marks a failure to connect.
type dialError struct {
	err error
}

func (e *dialError) Error() string { return "connect: " + e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

// peer returns the connection to address, dialing it once for all waiting
// callers.
func (t *Transport) peer(ctx context.Context, address string) (*peer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if p, ok := t.peers[address]; ok {
		t.mu.Unlock()
		return p, nil
	}
	t.mu.Unlock()

	v, err, _ := t.dials.Do(address, func() (any, error) {
		conn, err := transport.Dial(ctx, address, t.config.Client)
		if err != nil {
			return nil, &dialError{err: err}
		}

		rec := capture.NewRecorder(t.config.ProtocolLogger, capture.RoleClient, conn.ID().String(), address)
		client := NewClient(&recordingSender{conn: conn, rec: rec})
		client.SetTimeout(t.config.RequestTimeout)
		p := &peer{address: address, conn: conn, client: client, rec: rec}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			_ = conn.Close()
			return nil, ErrTransportClosed
		}
		t.peers[address] = p
		t.mu.Unlock()

		rec.State("", "connected", "")
		go t.receiveLoop(p)
		t.debugLog("connected", "address", address, "conn", conn.ID())
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*peer), nil
}

// receiveLoop dispatches responses until the connection fails, then drops
// the peer so the next read dials again.
func (t *Transport) receiveLoop(p *peer) {
	defer t.drop(p)
	for {
		data, err := p.conn.Receive(0)
		if err != nil {
			p.rec.State("connected", "closed", err.Error())
			t.debugLog("connection lost", "address", p.address, "error", err)
			return
		}
		p.rec.Response(capture.DirectionIn, data, 0)
		if err := p.client.HandleFrame(data); err != nil {
			t.debugLog("discarding response", "address", p.address, "error", err)
		}
	}
}

func (t *Transport) drop(p *peer) {
	t.mu.Lock()
	if t.peers[p.address] == p {
		delete(t.peers, p.address)
	}
	t.mu.Unlock()
	_ = p.client.Close()
	_ = p.conn.Close()
}

// Disconnect closes the connection to address, if any.
func (t *Transport) Disconnect(address string) {
	t.mu.Lock()
	p, ok := t.peers[address]
	t.mu.Unlock()
	if ok {
		t.drop(p)
	}
}

// ConnectionCount returns the number of open device connections.
func (t *Transport) ConnectionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// Close closes every connection. ReadBatch fails afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	for _, p := range peers {
		t.drop(p)
	}
	return nil
}

func (t *Transport) debugLog(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, args...)
	}
}

var _ readprop.Transport = (*Transport)(nil)
