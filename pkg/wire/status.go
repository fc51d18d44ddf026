package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the service completed; per-property errors may
	// still be present in the payload.
	StatusSuccess Status = 0

	// StatusError indicates the whole service failed; the payload is an
	// ErrorPayload.
	StatusError Status = 1

	// StatusReject indicates a malformed or unsupported request.
	StatusReject Status = 2

	// StatusAbort indicates the device gave up, for example because the
	// response would not fit.
	StatusAbort Status = 3

	// StatusUnknownDevice indicates the endpoint does not host the device.
	StatusUnknownDevice Status = 4

	// StatusBusy indicates the device is busy; try again later.
	StatusBusy Status = 5

	// StatusTimeout indicates the endpoint timed out on the device's behalf.
	StatusTimeout Status = 6
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	case StatusReject:
		return "REJECT"
	case StatusAbort:
		return "ABORT"
	case StatusUnknownDevice:
		return "UNKNOWN_DEVICE"
	case StatusBusy:
		return "BUSY"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
