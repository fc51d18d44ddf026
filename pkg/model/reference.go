package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ArrayIndex selects one element of an array-valued property.
// Index 0 is the array length; elements start at 1.
type ArrayIndex uint32

// NoIndex means the whole property value is referenced.
const NoIndex ArrayIndex = 0xFFFFFFFF

// PropertyReference names a property and an optional array index.
// It is comparable and usable as a map key.
type PropertyReference struct {
	Property PropertyIdentifier
	Index    ArrayIndex
}

// Ref references a whole property value.
func Ref(p PropertyIdentifier) PropertyReference {
	return PropertyReference{Property: p, Index: NoIndex}
}

// IndexedRef references one element of an array-valued property.
func IndexedRef(p PropertyIdentifier, index ArrayIndex) PropertyReference {
	return PropertyReference{Property: p, Index: index}
}

// HasIndex reports whether the reference selects a single array element.
func (r PropertyReference) HasIndex() bool {
	return r.Index != NoIndex
}

// String returns "property" or "property[index]".
func (r PropertyReference) String() string {
	if !r.HasIndex() {
		return r.Property.String()
	}
	return r.Property.String() + "[" + strconv.FormatUint(uint64(r.Index), 10) + "]"
}

func (r PropertyReference) less(other PropertyReference) bool {
	if r.Property != other.Property {
		return r.Property < other.Property
	}
	return r.Index < other.Index
}

// ObjectPropertyReference is a property reference within a known object.
type ObjectPropertyReference struct {
	Object ObjectIdentifier
	Ref    PropertyReference
}

// String returns "object/property[index]".
func (r ObjectPropertyReference) String() string {
	return r.Object.String() + "/" + r.Ref.String()
}

// ParsePropertyReference parses "property" or "property[index]".
func ParsePropertyReference(s string) (PropertyReference, error) {
	s = strings.TrimSpace(s)
	name, index := s, NoIndex
	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return PropertyReference{}, fmt.Errorf("unterminated array index in %q", s)
		}
		n, err := strconv.ParseUint(s[open+1:len(s)-1], 10, 32)
		if err != nil || ArrayIndex(n) == NoIndex {
			return PropertyReference{}, fmt.Errorf("invalid array index in %q", s)
		}
		name, index = s[:open], ArrayIndex(n)
	}
	p, err := ParsePropertyIdentifier(name)
	if err != nil {
		return PropertyReference{}, err
	}
	return PropertyReference{Property: p, Index: index}, nil
}

// ParseReference parses "<device>:<object-type>:<instance>:<property>[<index>]".
func ParseReference(s string) (DeviceID, ObjectIdentifier, PropertyReference, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return 0, ObjectIdentifier{}, PropertyReference{}, fmt.Errorf("invalid reference %q: want device:type:instance:property", s)
	}
	dev, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || uint32(dev) > MaxInstance {
		return 0, ObjectIdentifier{}, PropertyReference{}, fmt.Errorf("invalid device instance in %q", s)
	}
	oid, err := ParseObjectIdentifier(parts[1] + "," + parts[2])
	if err != nil {
		return 0, ObjectIdentifier{}, PropertyReference{}, err
	}
	ref, err := ParsePropertyReference(parts[3])
	if err != nil {
		return 0, ObjectIdentifier{}, PropertyReference{}, err
	}
	return DeviceID(dev), oid, ref, nil
}

// deviceReferences keeps one device's pending references in insertion order.
type deviceReferences struct {
	objects    []ObjectIdentifier
	properties map[ObjectIdentifier][]PropertyReference
}

// PropertyReferenceSet groups property references by device and object.
//
// Within a device, objects and their properties keep insertion order so a
// batch request preserves the caller's ordering. Duplicate references are
// ignored. A PropertyReferenceSet is not safe for concurrent mutation.
type PropertyReferenceSet struct {
	devices map[DeviceID]*deviceReferences
}

// NewPropertyReferenceSet creates an empty set.
func NewPropertyReferenceSet() *PropertyReferenceSet {
	return &PropertyReferenceSet{devices: make(map[DeviceID]*deviceReferences)}
}

// Add appends references for an object, skipping ones already present.
func (s *PropertyReferenceSet) Add(device DeviceID, object ObjectIdentifier, refs ...PropertyReference) {
	dr, ok := s.devices[device]
	if !ok {
		dr = &deviceReferences{properties: make(map[ObjectIdentifier][]PropertyReference)}
		s.devices[device] = dr
	}
	existing, ok := dr.properties[object]
	if !ok {
		dr.objects = append(dr.objects, object)
	}
	for _, ref := range refs {
		if !containsRef(existing, ref) {
			existing = append(existing, ref)
		}
	}
	dr.properties[object] = existing
}

// AddProperties appends whole-value references for each property.
func (s *PropertyReferenceSet) AddProperties(device DeviceID, object ObjectIdentifier, props ...PropertyIdentifier) {
	refs := make([]PropertyReference, len(props))
	for i, p := range props {
		refs[i] = Ref(p)
	}
	s.Add(device, object, refs...)
}

// Remove deletes one reference. Empty objects and devices are kept until Prune.
func (s *PropertyReferenceSet) Remove(device DeviceID, object ObjectIdentifier, ref PropertyReference) bool {
	dr, ok := s.devices[device]
	if !ok {
		return false
	}
	refs := dr.properties[object]
	for i, r := range refs {
		if r == ref {
			dr.properties[object] = append(refs[:i:i], refs[i+1:]...)
			return true
		}
	}
	return false
}

// Prune drops objects without pending references, then devices without objects.
func (s *PropertyReferenceSet) Prune() {
	for device, dr := range s.devices {
		kept := dr.objects[:0]
		for _, oid := range dr.objects {
			if len(dr.properties[oid]) == 0 {
				delete(dr.properties, oid)
				continue
			}
			kept = append(kept, oid)
		}
		dr.objects = kept
		if len(dr.objects) == 0 {
			delete(s.devices, device)
		}
	}
}

// Len returns the number of references across all devices.
func (s *PropertyReferenceSet) Len() int {
	n := 0
	for device := range s.devices {
		n += s.DeviceLen(device)
	}
	return n
}

// DeviceLen returns the number of references for one device.
func (s *PropertyReferenceSet) DeviceLen(device DeviceID) int {
	dr, ok := s.devices[device]
	if !ok {
		return 0
	}
	n := 0
	for _, refs := range dr.properties {
		n += len(refs)
	}
	return n
}

// Devices returns the devices in the set in ascending order.
func (s *PropertyReferenceSet) Devices() []DeviceID {
	ids := make([]DeviceID, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Objects returns a device's objects in insertion order.
func (s *PropertyReferenceSet) Objects(device DeviceID) []ObjectIdentifier {
	dr, ok := s.devices[device]
	if !ok {
		return nil
	}
	return append([]ObjectIdentifier(nil), dr.objects...)
}

// Properties returns a copy of an object's pending references.
func (s *PropertyReferenceSet) Properties(device DeviceID, object ObjectIdentifier) []PropertyReference {
	dr, ok := s.devices[device]
	if !ok {
		return nil
	}
	return append([]PropertyReference(nil), dr.properties[object]...)
}

// References flattens a device's pending references in request order.
func (s *PropertyReferenceSet) References(device DeviceID) []ObjectPropertyReference {
	dr, ok := s.devices[device]
	if !ok {
		return nil
	}
	var out []ObjectPropertyReference
	for _, oid := range dr.objects {
		for _, ref := range dr.properties[oid] {
			out = append(out, ObjectPropertyReference{Object: oid, Ref: ref})
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *PropertyReferenceSet) Clone() *PropertyReferenceSet {
	c := NewPropertyReferenceSet()
	for device, dr := range s.devices {
		for _, oid := range dr.objects {
			c.Add(device, oid, dr.properties[oid]...)
		}
	}
	return c
}

func containsRef(refs []PropertyReference, ref PropertyReference) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
