package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxInstance is the largest valid object instance number (22 bits).
const MaxInstance uint32 = 0x3FFFFF

// DeviceID is a BACnet device instance number.
type DeviceID uint32

// String returns the decimal instance number.
func (d DeviceID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}

// ObjectType identifies the kind of a BACnet object.
type ObjectType uint16

// Standard object types.
const (
	ObjectAnalogInput       ObjectType = 0
	ObjectAnalogOutput      ObjectType = 1
	ObjectAnalogValue       ObjectType = 2
	ObjectBinaryInput       ObjectType = 3
	ObjectBinaryOutput      ObjectType = 4
	ObjectBinaryValue       ObjectType = 5
	ObjectCalendar          ObjectType = 6
	ObjectCommand           ObjectType = 7
	ObjectDevice            ObjectType = 8
	ObjectEventEnrollment   ObjectType = 9
	ObjectFile              ObjectType = 10
	ObjectGroup             ObjectType = 11
	ObjectLoop              ObjectType = 12
	ObjectMultiStateInput   ObjectType = 13
	ObjectMultiStateOutput  ObjectType = 14
	ObjectNotificationClass ObjectType = 15
	ObjectProgram           ObjectType = 16
	ObjectSchedule          ObjectType = 17
	ObjectAveraging         ObjectType = 18
	ObjectMultiStateValue   ObjectType = 19
	ObjectTrendLog          ObjectType = 20
)

var objectTypeNames = map[ObjectType]string{
	ObjectAnalogInput:       "analog-input",
	ObjectAnalogOutput:      "analog-output",
	ObjectAnalogValue:       "analog-value",
	ObjectBinaryInput:       "binary-input",
	ObjectBinaryOutput:      "binary-output",
	ObjectBinaryValue:       "binary-value",
	ObjectCalendar:          "calendar",
	ObjectCommand:           "command",
	ObjectDevice:            "device",
	ObjectEventEnrollment:   "event-enrollment",
	ObjectFile:              "file",
	ObjectGroup:             "group",
	ObjectLoop:              "loop",
	ObjectMultiStateInput:   "multi-state-input",
	ObjectMultiStateOutput:  "multi-state-output",
	ObjectNotificationClass: "notification-class",
	ObjectProgram:           "program",
	ObjectSchedule:          "schedule",
	ObjectAveraging:         "averaging",
	ObjectMultiStateValue:   "multi-state-value",
	ObjectTrendLog:          "trend-log",
}

var objectTypesByName = invert(objectTypeNames)

// String returns the standard hyphenated name, or the number for
// proprietary types.
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return strconv.FormatUint(uint64(t), 10)
}

// ParseObjectType parses a standard name or a decimal number.
func ParseObjectType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := objectTypesByName[s]; ok {
		return t, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown object type %q", s)
	}
	return ObjectType(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (t ObjectType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ObjectType) UnmarshalText(text []byte) error {
	v, err := ParseObjectType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ObjectIdentifier names one object within a device.
type ObjectIdentifier struct {
	Type     ObjectType
	Instance uint32
}

// NewObjectIdentifier is shorthand for ObjectIdentifier{Type: t, Instance: instance}.
func NewObjectIdentifier(t ObjectType, instance uint32) ObjectIdentifier {
	return ObjectIdentifier{Type: t, Instance: instance}
}

// DeviceObject returns the device object identifier of a device.
func DeviceObject(id DeviceID) ObjectIdentifier {
	return ObjectIdentifier{Type: ObjectDevice, Instance: uint32(id)}
}

// String returns "type,instance".
func (o ObjectIdentifier) String() string {
	return o.Type.String() + "," + strconv.FormatUint(uint64(o.Instance), 10)
}

// Less orders identifiers by type, then instance.
func (o ObjectIdentifier) Less(other ObjectIdentifier) bool {
	if o.Type != other.Type {
		return o.Type < other.Type
	}
	return o.Instance < other.Instance
}

// Validate checks the instance number range.
func (o ObjectIdentifier) Validate() error {
	if o.Instance > MaxInstance {
		return fmt.Errorf("object instance %d out of range", o.Instance)
	}
	return nil
}

// ParseObjectIdentifier parses "type,instance" or "type:instance".
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	sep := strings.IndexAny(s, ",:")
	if sep < 0 {
		return ObjectIdentifier{}, fmt.Errorf("invalid object identifier %q", s)
	}
	t, err := ParseObjectType(s[:sep])
	if err != nil {
		return ObjectIdentifier{}, err
	}
	inst, err := strconv.ParseUint(strings.TrimSpace(s[sep+1:]), 10, 32)
	if err != nil {
		return ObjectIdentifier{}, fmt.Errorf("invalid object instance in %q: %w", s, err)
	}
	oid := ObjectIdentifier{Type: t, Instance: uint32(inst)}
	return oid, oid.Validate()
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
