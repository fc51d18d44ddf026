package model

import (
	"errors"
	"fmt"
)

var (
	// ErrPropertyNotAList indicates an array index was applied to a value
	// that is not a sequence.
	ErrPropertyNotAList = errors.New("property is not a list")

	// ErrInvalidArrayIndex indicates an array index past the end of a list.
	ErrInvalidArrayIndex = errors.New("invalid array index")
)

// ErrorClass is the BACnet error class.
type ErrorClass uint16

// Error classes.
const (
	ErrorClassDevice        ErrorClass = 0
	ErrorClassObject        ErrorClass = 1
	ErrorClassProperty      ErrorClass = 2
	ErrorClassResources     ErrorClass = 3
	ErrorClassSecurity      ErrorClass = 4
	ErrorClassServices      ErrorClass = 5
	ErrorClassVT            ErrorClass = 6
	ErrorClassCommunication ErrorClass = 7
)

// String returns the class name.
func (c ErrorClass) String() string {
	switch c {
	case ErrorClassDevice:
		return "device"
	case ErrorClassObject:
		return "object"
	case ErrorClassProperty:
		return "property"
	case ErrorClassResources:
		return "resources"
	case ErrorClassSecurity:
		return "security"
	case ErrorClassServices:
		return "services"
	case ErrorClassVT:
		return "vt"
	case ErrorClassCommunication:
		return "communication"
	default:
		return fmt.Sprintf("class-%d", uint16(c))
	}
}

// ErrorCode is the BACnet error code.
type ErrorCode uint16

// Error codes used by the client.
const (
	ErrorCodeOther                 ErrorCode = 0
	ErrorCodeReadAccessDenied      ErrorCode = 27
	ErrorCodeServiceRequestDenied  ErrorCode = 29
	ErrorCodeTimeout               ErrorCode = 30
	ErrorCodeUnknownObject         ErrorCode = 31
	ErrorCodeUnknownProperty       ErrorCode = 32
	ErrorCodeInvalidArrayIndex     ErrorCode = 42
	ErrorCodePropertyIsNotAnArray  ErrorCode = 50
	ErrorCodeUnknownDevice         ErrorCode = 70
	ErrorCodeCommunicationDisabled ErrorCode = 83
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeOther:
		return "other"
	case ErrorCodeReadAccessDenied:
		return "read-access-denied"
	case ErrorCodeServiceRequestDenied:
		return "service-request-denied"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeUnknownObject:
		return "unknown-object"
	case ErrorCodeUnknownProperty:
		return "unknown-property"
	case ErrorCodeInvalidArrayIndex:
		return "invalid-array-index"
	case ErrorCodePropertyIsNotAnArray:
		return "property-is-not-an-array"
	case ErrorCodeUnknownDevice:
		return "unknown-device"
	case ErrorCodeCommunicationDisabled:
		return "communication-disabled"
	default:
		return fmt.Sprintf("code-%d", uint16(c))
	}
}

// PropertyError is a per-property error reported by a device or synthesized
// by the client.
type PropertyError struct {
	Class ErrorClass
	Code  ErrorCode
}

func (e *PropertyError) Error() string {
	return e.Class.String() + ": " + e.Code.String()
}

// Is matches another *PropertyError with the same class and code.
func (e *PropertyError) Is(target error) bool {
	var t *PropertyError
	if !errors.As(target, &t) {
		return false
	}
	return t.Class == e.Class && t.Code == e.Code
}

// ErrRemoteTimeout is the value recorded for a property whose device did not
// answer in time.
var ErrRemoteTimeout = &PropertyError{Class: ErrorClassCommunication, Code: ErrorCodeTimeout}

// IsTimeout reports whether err is a communication timeout property error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRemoteTimeout)
}
