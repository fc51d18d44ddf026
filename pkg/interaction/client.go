package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

// DefaultRequestTimeout is the APDU timeout used when none is configured.
const DefaultRequestTimeout = 5 * time.Second

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// RequestSender is the interface for sending requests over a connection.
type RequestSender interface {
	// Send sends one encoded request.
	Send(data []byte) error
}

// Client issues confirmed requests and matches responses by invoke ID.
type Client struct {
	mu sync.RWMutex

	sender  RequestSender
	timeout time.Duration

	nextID atomic.Uint32

	// Pending requests awaiting responses
	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	closed bool
}

// NewClient creates a new interaction client.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:  sender,
		timeout: DefaultRequestTimeout,
		pending: make(map[uint32]chan *wire.Response),
	}
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Close closes the client. Requests still waiting fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	c.pendingMu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = make(map[uint32]chan *wire.Response)
	c.pendingMu.Unlock()

	return nil
}

// PendingCount returns the number of requests awaiting a response.
func (c *Client) PendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// nextInvokeID generates the next invoke ID, skipping the reserved 0.
func (c *Client) nextInvokeID() uint32 {
	for {
		if id := c.nextID.Add(1); id != 0 {
			return id
		}
	}
}

// sendRequest sends a request and waits for the response.
func (c *Client) sendRequest(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *wire.Response, 1)

	c.pendingMu.Lock()
	c.pending[req.InvokeID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		if c.pending[req.InvokeID] == respCh {
			delete(c.pending, req.InvokeID)
		}
		c.pendingMu.Unlock()
	}()

	if err := c.sender.Send(data); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClientClosed
		}
		return resp, nil
	}
}

// HandleResponse should be called when a response is received.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.InvokeID]
	if exists {
		delete(c.pending, resp.InvokeID)
	}
	c.pendingMu.Unlock()

	if !exists {
		return ErrUnexpectedReply
	}

	ch <- resp
	return nil
}

// HandleFrame decodes a response frame and dispatches it.
func (c *Client) HandleFrame(data []byte) error {
	resp, err := wire.DecodeResponse(data)
	if err != nil {
		return err
	}
	return c.HandleResponse(resp)
}

// ReadMultiple sends a ReadPropertyMultiple for refs.
func (c *Client) ReadMultiple(ctx context.Context, device model.DeviceID, refs []model.ObjectPropertyReference) (*wire.ReadMultipleResponse, error) {
	req, err := wire.NewRequest(c.nextInvokeID(), wire.ServiceReadPropertyMultiple, uint32(device), wire.NewReadMultipleRequest(refs))
	if err != nil {
		return nil, err
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}

	var out wire.ReadMultipleResponse
	if err := wire.DecodePayload(resp.Payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return &out, nil
}

// ReadProperty reads one property. A property-level failure is returned in
// the result; the error reports a failure of the service itself.
func (c *Client) ReadProperty(ctx context.Context, device model.DeviceID, object model.ObjectIdentifier, ref model.PropertyReference) (model.Result, error) {
	payload := wire.ReadAccessSpec{
		ObjectType: uint16(object.Type),
		Instance:   object.Instance,
		Properties: []wire.PropertyRef{wire.NewPropertyRef(ref)},
	}
	req, err := wire.NewRequest(c.nextInvokeID(), wire.ServiceReadProperty, uint32(device), payload)
	if err != nil {
		return model.Result{}, err
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return model.Result{}, err
	}
	if !resp.IsSuccess() {
		se := statusError(resp)
		if se.Status == wire.StatusError {
			// ReadProperty reports a property error as a service error.
			return model.ErrorResult(&model.PropertyError{Class: se.Class, Code: se.Code}), nil
		}
		return model.Result{}, se
	}

	var item wire.ReadResultItem
	if err := wire.DecodePayload(resp.Payload, &item); err != nil {
		return model.Result{}, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return item.Result(), nil
}

// StatusError represents an error response from the device.
type StatusError struct {
	Status  wire.Status
	Class   model.ErrorClass
	Code    model.ErrorCode
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Status.String() + ": " + e.Message
	}
	return e.Status.String()
}

// statusError creates an error from a failed response.
func statusError(resp *wire.Response) *StatusError {
	se := &StatusError{Status: resp.Status}
	var ep wire.ErrorPayload
	if len(resp.Payload) > 0 && wire.Unmarshal(resp.Payload, &ep) == nil {
		se.Class = model.ErrorClass(ep.Class)
		se.Code = model.ErrorCode(ep.Code)
		se.Message = ep.Message
	}
	return se
}
