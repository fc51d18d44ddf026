package capture

import (
	"time"

	"github.com/bacstack/bacnet-go/pkg/wire"
)

// Event is one captured protocol event. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalRole tells whether the recording side is a client or a device.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// One of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer.
	LayerWire Layer = 1
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates which side of the connection recorded the event.
type Role uint8

const (
	RoleClient Role = 0
	RoleDevice Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, truncated for large frames.
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded request or response.
type MessageEvent struct {
	Type MessageType `cbor:"1,keyasint"`

	// InvokeID correlates a response with its request.
	InvokeID uint32 `cbor:"2,keyasint"`

	// For requests: the confirmed service and the addressed device.
	Service *wire.Service `cbor:"3,keyasint,omitempty"`
	Device  *uint32       `cbor:"4,keyasint,omitempty"`

	// For responses: the status.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// Payload is the decoded payload in its generic CBOR form.
	Payload any `cbor:"8,keyasint,omitempty"`

	// ProcessingTime is how long the device took to answer (device
	// responses only).
	ProcessingTime *time.Duration `cbor:"9,keyasint,omitempty"`
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection lifecycle events.
type StateChangeEvent struct {
	OldState string `cbor:"2,keyasint,omitempty"`
	NewState string `cbor:"3,keyasint"`
	Reason   string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what was being done.
	Context string `cbor:"4,keyasint,omitempty"`
}
