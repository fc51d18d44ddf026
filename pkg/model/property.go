package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PropertyIdentifier names a property of a BACnet object.
type PropertyIdentifier uint32

// Standard property identifiers used by the client.
const (
	PropActiveText                   PropertyIdentifier = 4
	PropApplicationSoftwareVersion   PropertyIdentifier = 12
	PropNotificationClass            PropertyIdentifier = 17
	PropCOVIncrement                 PropertyIdentifier = 22
	PropDeadband                     PropertyIdentifier = 25
	PropDescription                  PropertyIdentifier = 28
	PropDeviceAddressBinding         PropertyIdentifier = 30
	PropEventState                   PropertyIdentifier = 36
	PropFirmwareRevision             PropertyIdentifier = 44
	PropHighLimit                    PropertyIdentifier = 45
	PropInactiveText                 PropertyIdentifier = 46
	PropLocalDate                    PropertyIdentifier = 56
	PropLocalTime                    PropertyIdentifier = 57
	PropLocation                     PropertyIdentifier = 58
	PropLowLimit                     PropertyIdentifier = 59
	PropMaxAPDULengthAccepted        PropertyIdentifier = 62
	PropModelName                    PropertyIdentifier = 70
	PropNumberOfStates               PropertyIdentifier = 74
	PropObjectIdentifier             PropertyIdentifier = 75
	PropObjectList                   PropertyIdentifier = 76
	PropObjectName                   PropertyIdentifier = 77
	PropObjectType                   PropertyIdentifier = 79
	PropOutOfService                 PropertyIdentifier = 81
	PropPresentValue                 PropertyIdentifier = 85
	PropPriorityArray                PropertyIdentifier = 87
	PropProtocolObjectTypesSupported PropertyIdentifier = 96
	PropProtocolServicesSupported    PropertyIdentifier = 97
	PropProtocolVersion              PropertyIdentifier = 98
	PropReliability                  PropertyIdentifier = 103
	PropRelinquishDefault            PropertyIdentifier = 104
	PropSegmentationSupported        PropertyIdentifier = 107
	PropStateText                    PropertyIdentifier = 110
	PropStatusFlags                  PropertyIdentifier = 111
	PropSystemStatus                 PropertyIdentifier = 112
	PropUnits                        PropertyIdentifier = 117
	PropVendorIdentifier             PropertyIdentifier = 120
	PropVendorName                   PropertyIdentifier = 121
	PropProtocolRevision             PropertyIdentifier = 139
	PropDatabaseRevision             PropertyIdentifier = 155
	PropMaxSegmentsAccepted          PropertyIdentifier = 167
	PropPropertyList                 PropertyIdentifier = 371
)

var propertyNames = map[PropertyIdentifier]string{
	PropActiveText:                   "active-text",
	PropApplicationSoftwareVersion:   "application-software-version",
	PropNotificationClass:            "notification-class",
	PropCOVIncrement:                 "cov-increment",
	PropDeadband:                     "deadband",
	PropDescription:                  "description",
	PropDeviceAddressBinding:         "device-address-binding",
	PropEventState:                   "event-state",
	PropFirmwareRevision:             "firmware-revision",
	PropHighLimit:                    "high-limit",
	PropInactiveText:                 "inactive-text",
	PropLocalDate:                    "local-date",
	PropLocalTime:                    "local-time",
	PropLocation:                     "location",
	PropLowLimit:                     "low-limit",
	PropMaxAPDULengthAccepted:        "max-apdu-length-accepted",
	PropModelName:                    "model-name",
	PropNumberOfStates:               "number-of-states",
	PropObjectIdentifier:             "object-identifier",
	PropObjectList:                   "object-list",
	PropObjectName:                   "object-name",
	PropObjectType:                   "object-type",
	PropOutOfService:                 "out-of-service",
	PropPresentValue:                 "present-value",
	PropPriorityArray:                "priority-array",
	PropProtocolObjectTypesSupported: "protocol-object-types-supported",
	PropProtocolServicesSupported:    "protocol-services-supported",
	PropProtocolVersion:              "protocol-version",
	PropReliability:                  "reliability",
	PropRelinquishDefault:            "relinquish-default",
	PropSegmentationSupported:        "segmentation-supported",
	PropStateText:                    "state-text",
	PropStatusFlags:                  "status-flags",
	PropSystemStatus:                 "system-status",
	PropUnits:                        "units",
	PropVendorIdentifier:             "vendor-identifier",
	PropVendorName:                   "vendor-name",
	PropProtocolRevision:             "protocol-revision",
	PropDatabaseRevision:             "database-revision",
	PropMaxSegmentsAccepted:          "max-segments-accepted",
	PropPropertyList:                 "property-list",
}

var propertiesByName = invert(propertyNames)

// String returns the standard hyphenated name, or the number for
// proprietary properties.
func (p PropertyIdentifier) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return strconv.FormatUint(uint64(p), 10)
}

// ParsePropertyIdentifier parses a standard name or a decimal number.
// camelCase names ("objectName") are accepted as well.
func ParsePropertyIdentifier(s string) (PropertyIdentifier, error) {
	s = strings.TrimSpace(s)
	if p, ok := propertiesByName[strings.ToLower(s)]; ok {
		return p, nil
	}
	if p, ok := propertiesByName[hyphenate(s)]; ok {
		return p, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown property %q", s)
	}
	return PropertyIdentifier(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p PropertyIdentifier) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PropertyIdentifier) UnmarshalText(text []byte) error {
	v, err := ParsePropertyIdentifier(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// hyphenate converts "objectName" to "object-name".
func hyphenate(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
