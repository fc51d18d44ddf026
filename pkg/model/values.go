package model

import (
	"fmt"
	"sort"
	"sync"
)

// Result is the outcome of reading one property: a value or an error.
type Result struct {
	Value any
	Err   error
}

// ValueResult wraps a successfully read value.
func ValueResult(v any) Result {
	return Result{Value: v}
}

// ErrorResult wraps a per-property error.
func ErrorResult(err error) Result {
	return Result{Err: err}
}

// IsError reports whether the result carries an error.
func (r Result) IsError() bool {
	return r.Err != nil
}

// String formats the value or the error.
func (r Result) String() string {
	if r.Err != nil {
		return "error(" + r.Err.Error() + ")"
	}
	return fmt.Sprint(r.Value)
}

// PropertyValueSet collects read results by device, object and reference.
// It is safe for concurrent use. Entries are never removed.
type PropertyValueSet struct {
	mu      sync.RWMutex
	devices map[DeviceID]map[ObjectIdentifier]map[PropertyReference]Result
	count   int
}

// NewPropertyValueSet creates an empty set.
func NewPropertyValueSet() *PropertyValueSet {
	return &PropertyValueSet{
		devices: make(map[DeviceID]map[ObjectIdentifier]map[PropertyReference]Result),
	}
}

// Put records a result. A later Put for the same key replaces the result.
func (s *PropertyValueSet) Put(device DeviceID, object ObjectIdentifier, ref PropertyReference, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.devices[device]
	if !ok {
		objects = make(map[ObjectIdentifier]map[PropertyReference]Result)
		s.devices[device] = objects
	}
	refs, ok := objects[object]
	if !ok {
		refs = make(map[PropertyReference]Result)
		objects[object] = refs
	}
	if _, exists := refs[ref]; !exists {
		s.count++
	}
	refs[ref] = result
}

// Get returns the result for a key.
func (s *PropertyValueSet) Get(device DeviceID, object ObjectIdentifier, ref PropertyReference) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.devices[device][object][ref]
	return r, ok
}

// Value returns the whole-value result of a property, or an error if the
// property is missing or failed.
func (s *PropertyValueSet) Value(device DeviceID, object ObjectIdentifier, property PropertyIdentifier) (any, error) {
	r, ok := s.Get(device, object, Ref(property))
	if !ok {
		return nil, fmt.Errorf("no result for %d/%s/%s", device, object, property)
	}
	return r.Value, r.Err
}

// Len returns the number of results.
func (s *PropertyValueSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// DeviceLen returns the number of results for one device.
func (s *PropertyValueSet) DeviceLen(device DeviceID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, refs := range s.devices[device] {
		n += len(refs)
	}
	return n
}

// Devices returns the devices with at least one result, ascending.
func (s *PropertyValueSet) Devices() []DeviceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]DeviceID, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each calls fn for every result in device, object, reference order.
// fn must not modify the set.
func (s *PropertyValueSet) Each(fn func(device DeviceID, object ObjectIdentifier, ref PropertyReference, result Result)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]DeviceID, 0, len(s.devices))
	for id := range s.devices {
		devices = append(devices, id)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	for _, device := range devices {
		objects := s.devices[device]
		oids := make([]ObjectIdentifier, 0, len(objects))
		for oid := range objects {
			oids = append(oids, oid)
		}
		sort.Slice(oids, func(i, j int) bool { return oids[i].Less(oids[j]) })

		for _, oid := range oids {
			refs := objects[oid]
			keys := make([]PropertyReference, 0, len(refs))
			for ref := range refs {
				keys = append(keys, ref)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
			for _, ref := range keys {
				fn(device, oid, ref, refs[ref])
			}
		}
	}
}
