package cache

import (
	"fmt"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// Scope is one axis of a policy key: a specific value or a wildcard.
// The zero value is the wildcard.
type Scope[T comparable] struct {
	value    T
	specific bool
}

// Specific returns a scope matching exactly v.
func Specific[T comparable](v T) Scope[T] {
	return Scope[T]{value: v, specific: true}
}

// Wildcard returns a scope matching any value.
func Wildcard[T comparable]() Scope[T] {
	return Scope[T]{}
}

// IsWildcard reports whether the scope matches any value.
func (s Scope[T]) IsWildcard() bool {
	return !s.specific
}

// Value returns the specific value, or false for a wildcard.
func (s Scope[T]) Value() (T, bool) {
	return s.value, s.specific
}

// String returns "*" for a wildcard.
func (s Scope[T]) String() string {
	if !s.specific {
		return "*"
	}
	return fmt.Sprint(s.value)
}

// widen keeps the scope when keep is set and returns the wildcard otherwise.
func (s Scope[T]) widen(keep bool) Scope[T] {
	if keep {
		return s
	}
	return Scope[T]{}
}

// DeviceKey selects device policies.
type DeviceKey struct {
	Device Scope[model.DeviceID]
}

// ObjectKey selects object policies.
type ObjectKey struct {
	Device Scope[model.DeviceID]
	Object Scope[model.ObjectIdentifier]
}

// PropertyKey selects property policies.
type PropertyKey struct {
	Device   Scope[model.DeviceID]
	Object   Scope[model.ObjectIdentifier]
	Property Scope[model.PropertyIdentifier]
}

// DeviceKeyFor returns the fully specific key for a device.
func DeviceKeyFor(device model.DeviceID) DeviceKey {
	return DeviceKey{Device: Specific(device)}
}

// ObjectKeyFor returns the fully specific key for an object.
func ObjectKeyFor(device model.DeviceID, object model.ObjectIdentifier) ObjectKey {
	return ObjectKey{Device: Specific(device), Object: Specific(object)}
}

// PropertyKeyFor returns the fully specific key for a property.
func PropertyKeyFor(device model.DeviceID, object model.ObjectIdentifier, property model.PropertyIdentifier) PropertyKey {
	return PropertyKey{Device: Specific(device), Object: Specific(object), Property: Specific(property)}
}

// AnyProperty returns the key matching one property on every object of every device.
func AnyProperty(property model.PropertyIdentifier) PropertyKey {
	return PropertyKey{Property: Specific(property)}
}

func (k DeviceKey) String() string {
	return "(" + k.Device.String() + ")"
}

func (k ObjectKey) String() string {
	return "(" + k.Device.String() + "," + k.Object.String() + ")"
}

func (k PropertyKey) String() string {
	return "(" + k.Device.String() + "," + k.Object.String() + "," + k.Property.String() + ")"
}

// Lookup orders. Each row lists which axes stay specific, most specific first.
var (
	deviceLookupOrder = [...][1]bool{
		{true},
		{false},
	}
	objectLookupOrder = [...][2]bool{
		{true, true},
		{true, false},
		{false, true},
		{false, false},
	}
	propertyLookupOrder = [...][3]bool{
		{true, true, true},
		{true, true, false},
		{true, false, true},
		{true, false, false},
		{false, true, true},
		{false, true, false},
		{false, false, true},
		{false, false, false},
	}
)

// lookupOrder returns the candidate keys for a lookup, most specific first.
func (k DeviceKey) lookupOrder() []DeviceKey {
	out := make([]DeviceKey, 0, len(deviceLookupOrder))
	for _, m := range deviceLookupOrder {
		out = append(out, DeviceKey{Device: k.Device.widen(m[0])})
	}
	return out
}

func (k ObjectKey) lookupOrder() []ObjectKey {
	out := make([]ObjectKey, 0, len(objectLookupOrder))
	for _, m := range objectLookupOrder {
		out = append(out, ObjectKey{
			Device: k.Device.widen(m[0]),
			Object: k.Object.widen(m[1]),
		})
	}
	return out
}

func (k PropertyKey) lookupOrder() []PropertyKey {
	out := make([]PropertyKey, 0, len(propertyLookupOrder))
	for _, m := range propertyLookupOrder {
		out = append(out, PropertyKey{
			Device:   k.Device.widen(m[0]),
			Object:   k.Object.widen(m[1]),
			Property: k.Property.widen(m[2]),
		})
	}
	return out
}
