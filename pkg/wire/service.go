package wire

// Service is a confirmed service choice.
type Service uint8

const (
	// ServiceReadProperty reads one property.
	ServiceReadProperty Service = 12

	// ServiceReadPropertyMultiple reads a list of properties from a list of
	// objects in one request.
	ServiceReadPropertyMultiple Service = 14
)

// String returns the service name.
func (s Service) String() string {
	switch s {
	case ServiceReadProperty:
		return "ReadProperty"
	case ServiceReadPropertyMultiple:
		return "ReadPropertyMultiple"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the service is one this package defines.
func (s Service) IsValid() bool {
	return s == ServiceReadProperty || s == ServiceReadPropertyMultiple
}
