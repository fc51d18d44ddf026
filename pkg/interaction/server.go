package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/transport"
	"github.com/bacstack/bacnet-go/pkg/wire"
)

// PropertyStore is the object database a Server answers from.
type PropertyStore interface {
	// HasDevice reports whether the store holds the device.
	HasDevice(device model.DeviceID) bool

	// ReadProperty returns the value of ref, or a *model.PropertyError.
	ReadProperty(device model.DeviceID, object model.ObjectIdentifier, ref model.PropertyReference) (any, error)
}

// Server answers read requests from a PropertyStore.
type Server struct {
	mu     sync.RWMutex
	store    PropertyStore
	logger   *slog.Logger
	protocol capture.Logger

	served atomic.Uint64
}

// NewServer creates a new interaction server for the given store.
func NewServer(store PropertyStore) *Server {
	return &Server{store: store}
}

// SetLogger sets the logger. If nil, logging is disabled.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetProtocolLogger sets the logger receiving every frame served.
// If nil, nothing is captured.
func (s *Server) SetProtocolLogger(logger capture.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocol = logger
}

// RequestCount returns the number of requests answered.
func (s *Server) RequestCount() uint64 {
	return s.served.Load()
}

// HandleRequest processes an incoming request and returns a response.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *wire.Response {
	s.served.Add(1)

	device := model.DeviceID(req.Device)
	if !s.store.HasDevice(device) {
		return errorResponse(req.InvokeID, wire.StatusUnknownDevice,
			model.ErrorClassDevice, model.ErrorCodeUnknownDevice, fmt.Sprintf("device %d not found", req.Device))
	}

	switch req.Service {
	case wire.ServiceReadProperty:
		return s.handleReadProperty(ctx, device, req)
	case wire.ServiceReadPropertyMultiple:
		return s.handleReadMultiple(ctx, device, req)
	default:
		return errorResponse(req.InvokeID, wire.StatusReject,
			model.ErrorClassServices, model.ErrorCodeServiceRequestDenied, "unsupported service")
	}
}

// handleReadProperty answers a single property. A property error is the
// service error.
func (s *Server) handleReadProperty(_ context.Context, device model.DeviceID, req *wire.Request) *wire.Response {
	var spec wire.ReadAccessSpec
	if err := wire.DecodePayload(req.Payload, &spec); err != nil {
		return rejectResponse(req.InvokeID, err.Error())
	}
	if len(spec.Properties) != 1 {
		return rejectResponse(req.InvokeID, "exactly one property is required")
	}

	ref := spec.Properties[0].Reference()
	v, err := s.store.ReadProperty(device, spec.Object(), ref)
	if err != nil {
		pe := model.AsPropertyError(err)
		return errorResponse(req.InvokeID, wire.StatusError, pe.Class, pe.Code, "")
	}
	return newResponse(req.InvokeID, wire.ResultItem(ref, model.ValueResult(v)))
}

// handleReadMultiple answers every requested property, with per-property
// errors in place of values that could not be read.
func (s *Server) handleReadMultiple(_ context.Context, device model.DeviceID, req *wire.Request) *wire.Response {
	var rpm wire.ReadMultipleRequest
	if err := wire.DecodePayload(req.Payload, &rpm); err != nil {
		return rejectResponse(req.InvokeID, err.Error())
	}
	if rpm.Count() == 0 {
		return rejectResponse(req.InvokeID, "no properties requested")
	}

	out := &wire.ReadMultipleResponse{}
	for _, ref := range rpm.References() {
		v, err := s.store.ReadProperty(device, ref.Object, ref.Ref)
		if err != nil {
			out.Add(ref.Object, ref.Ref, model.ErrorResult(err))
			continue
		}
		out.Add(ref.Object, ref.Ref, model.ValueResult(v))
	}
	return newResponse(req.InvokeID, out)
}

// HandleFrame decodes a request frame and returns the encoded response.
// Frames too damaged to carry an invoke ID yield an error and no response.
func (s *Server) HandleFrame(ctx context.Context, data []byte) ([]byte, error) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		invokeID, peekErr := wire.PeekInvokeID(data)
		if peekErr != nil || invokeID == 0 {
			return nil, err
		}
		s.debugLog("rejecting malformed request", "invokeID", invokeID, "error", err)
		return wire.EncodeResponse(rejectResponse(invokeID, err.Error()))
	}
	return wire.EncodeResponse(s.HandleRequest(ctx, req))
}

// ServeMessage answers one frame received on conn. It fits
// transport.ServerConfig.OnMessage.
func (s *Server) ServeMessage(conn *transport.ServerConn, msg []byte) {
	s.mu.RLock()
	protocol := s.protocol
	s.mu.RUnlock()
	rec := capture.NewRecorder(protocol, capture.RoleDevice, conn.ID().String(), conn.RemoteAddr().String())

	start := time.Now()
	rec.Request(capture.DirectionIn, msg)
	resp, err := s.HandleFrame(context.Background(), msg)
	if err != nil {
		s.debugLog("dropping undecodable frame", "conn", conn.ID(), "error", err)
		return
	}
	rec.Response(capture.DirectionOut, resp, time.Since(start))
	if err := conn.Send(resp); err != nil && !errors.Is(err, transport.ErrConnectionClosed) {
		s.debugLog("failed to send response", "conn", conn.ID(), "error", err)
	}
}

func (s *Server) debugLog(msg string, args ...any) {
	s.mu.RLock()
	logger := s.logger
	s.mu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// newResponse creates a success response, falling back to an abort when the
// payload cannot be encoded.
func newResponse(invokeID uint32, payload any) *wire.Response {
	resp, err := wire.NewResponse(invokeID, wire.StatusSuccess, payload)
	if err != nil {
		return errorResponse(invokeID, wire.StatusAbort, model.ErrorClassServices, model.ErrorCodeOther, err.Error())
	}
	return resp
}

// errorResponse creates an error response.
func errorResponse(invokeID uint32, status wire.Status, class model.ErrorClass, code model.ErrorCode, message string) *wire.Response {
	resp, err := wire.NewResponse(invokeID, status, &wire.ErrorPayload{
		Class:   uint16(class),
		Code:    uint16(code),
		Message: message,
	})
	if err != nil {
		return &wire.Response{InvokeID: invokeID, Status: status}
	}
	return resp
}

func rejectResponse(invokeID uint32, message string) *wire.Response {
	return errorResponse(invokeID, wire.StatusReject, model.ErrorClassServices, model.ErrorCodeOther, message)
}
