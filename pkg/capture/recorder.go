package capture

import (
	"time"

	"github.com/bacstack/bacnet-go/pkg/wire"
)

// DefaultMaxFrameData is how many frame bytes a Recorder keeps per event.
const DefaultMaxFrameData = 1024

// Recorder records the traffic of one connection. A nil Recorder, or one
// built on a nil Logger, records nothing.
type Recorder struct {
	logger     Logger
	role       Role
	connID     string
	remoteAddr string
	now        func() time.Time

	// MaxFrameData bounds the frame bytes kept per event.
	MaxFrameData int
}

// NewRecorder creates a recorder for one connection. It returns nil when
// logger is nil.
func NewRecorder(logger Logger, role Role, connID, remoteAddr string) *Recorder {
	if logger == nil {
		return nil
	}
	return &Recorder{
		logger:       logger,
		role:         role,
		connID:       connID,
		remoteAddr:   remoteAddr,
		now:          time.Now,
		MaxFrameData: DefaultMaxFrameData,
	}
}

// Request records a request frame and, when it decodes, the request message.
func (r *Recorder) Request(dir Direction, data []byte) {
	if r == nil {
		return
	}
	r.frame(dir, data)

	req, err := wire.DecodeRequest(data)
	if err != nil {
		r.Error(LayerWire, err, "decode request")
		return
	}
	service := req.Service
	device := req.Device
	r.log(Event{
		Direction: dir,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:     MessageTypeRequest,
			InvokeID: req.InvokeID,
			Service:  &service,
			Device:   &device,
			Payload:  payload(req.Payload),
		},
	})
}

// Response records a response frame and, when it decodes, the response
// message. processing is recorded when positive.
func (r *Recorder) Response(dir Direction, data []byte, processing time.Duration) {
	if r == nil {
		return
	}
	r.frame(dir, data)

	resp, err := wire.DecodeResponse(data)
	if err != nil {
		r.Error(LayerWire, err, "decode response")
		return
	}
	status := resp.Status
	msg := &MessageEvent{
		Type:     MessageTypeResponse,
		InvokeID: resp.InvokeID,
		Status:   &status,
		Payload:  payload(resp.Payload),
	}
	if processing > 0 {
		msg.ProcessingTime = &processing
	}
	r.log(Event{
		Direction: dir,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message:   msg,
	})
}

// State records a connection state change.
func (r *Recorder) State(oldState, newState, reason string) {
	if r == nil {
		return
	}
	r.log(Event{
		Layer:    LayerTransport,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Error records an error at layer.
func (r *Recorder) Error(layer Layer, err error, context string) {
	if r == nil || err == nil {
		return
	}
	r.log(Event{
		Layer:    layer,
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (r *Recorder) frame(dir Direction, data []byte) {
	fe := &FrameEvent{Size: len(data)}
	n := len(data)
	if r.MaxFrameData >= 0 && n > r.MaxFrameData {
		n = r.MaxFrameData
		fe.Truncated = true
	}
	fe.Data = append([]byte(nil), data[:n]...)
	r.log(Event{
		Direction: dir,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Frame:     fe,
	})
}

func (r *Recorder) log(event Event) {
	event.Timestamp = r.now()
	event.ConnectionID = r.connID
	event.LocalRole = r.role
	event.RemoteAddr = r.remoteAddr
	r.logger.Log(event)
}

// payload decodes a raw payload into its generic form, or nil.
func payload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := wire.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
