package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys for the envelope.
const (
	KeyInvokeID        = 1
	KeyServiceOrStatus = 2 // Service (request) or Status (response)
	KeyDevice          = 3 // request only
	KeyPayload         = 4 // request; responses use key 3
)

// Request is a confirmed service request.
//
// CBOR encoding:
//
//	{
//	  1: invokeId,   // uint32, never 0
//	  2: service,    // uint8
//	  3: device,     // uint32 device instance
//	  4: payload     // service-specific
//	}
type Request struct {
	InvokeID uint32          `cbor:"1,keyasint"`
	Service  Service         `cbor:"2,keyasint"`
	Device   uint32          `cbor:"3,keyasint"`
	Payload  cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.InvokeID == 0 {
		return errors.New("invokeId 0 is reserved")
	}
	if !r.Service.IsValid() {
		return fmt.Errorf("invalid service: %d", r.Service)
	}
	return nil
}

// Response answers a Request.
//
// CBOR encoding:
//
//	{
//	  1: invokeId,   // uint32: matches request
//	  2: status,     // uint8: 0=success, or error code
//	  3: payload     // service-specific (success) or ErrorPayload
//	}
type Response struct {
	InvokeID uint32          `cbor:"1,keyasint"`
	Status   Status          `cbor:"2,keyasint"`
	Payload  cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// ErrorPayload describes why a whole service failed.
//
// CBOR encoding:
//
//	{
//	  1: class,    // uint16
//	  2: code,     // uint16
//	  3: message   // string, optional
//	}
type ErrorPayload struct {
	Class   uint16 `cbor:"1,keyasint"`
	Code    uint16 `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
}

// PropertyRef names one property, optionally one element of it.
type PropertyRef struct {
	Property uint32  `cbor:"1,keyasint"`
	Index    *uint32 `cbor:"2,keyasint,omitempty"`
}

// ReadAccessSpec lists the properties to read from one object.
type ReadAccessSpec struct {
	ObjectType uint16        `cbor:"1,keyasint"`
	Instance   uint32        `cbor:"2,keyasint"`
	Properties []PropertyRef `cbor:"3,keyasint"`
}

// ReadMultipleRequest is the payload of a ReadPropertyMultiple request.
//
// CBOR encoding:
//
//	{
//	  1: [ {1: objectType, 2: instance, 3: [ {1: property, 2: index?} ... ]} ... ]
//	}
type ReadMultipleRequest struct {
	Specs []ReadAccessSpec `cbor:"1,keyasint"`
}

// PropertyErrorPayload is a per-property error.
type PropertyErrorPayload struct {
	Class uint16 `cbor:"1,keyasint"`
	Code  uint16 `cbor:"2,keyasint"`
}

// ReadResultItem is the answer for one requested property: a value, or an
// error when Error is set.
type ReadResultItem struct {
	Property uint32                `cbor:"1,keyasint"`
	Index    *uint32               `cbor:"2,keyasint,omitempty"`
	Value    any                   `cbor:"3,keyasint"`
	Error    *PropertyErrorPayload `cbor:"4,keyasint,omitempty"`
}

// ReadAccessResult holds the answers for one object.
type ReadAccessResult struct {
	ObjectType uint16           `cbor:"1,keyasint"`
	Instance   uint32           `cbor:"2,keyasint"`
	Items      []ReadResultItem `cbor:"3,keyasint"`
}

// ReadMultipleResponse is the payload of a successful ReadPropertyMultiple
// response.
type ReadMultipleResponse struct {
	Results []ReadAccessResult `cbor:"1,keyasint"`
}

// NewRequest builds a request with a typed payload.
func NewRequest(invokeID uint32, service Service, device uint32, payload any) (*Request, error) {
	req := &Request{InvokeID: invokeID, Service: service, Device: device}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		req.Payload = data
	}
	return req, nil
}

// NewResponse builds a response with a typed payload.
func NewResponse(invokeID uint32, status Status, payload any) (*Response, error) {
	resp := &Response{InvokeID: invokeID, Status: status}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		resp.Payload = data
	}
	return resp, nil
}

// DecodePayload decodes a raw payload into v.
func DecodePayload(raw cbor.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	if err := Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
