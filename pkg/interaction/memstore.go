package interaction

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// DatabaseConfig is the YAML form of a MemoryStore.
//
//	devices:
//	  - instance: 1001
//	    name: AHU-1
//	    vendor-id: 260
//	    objects:
//	      - object: analog-input,1
//	        properties:
//	          object-name: Supply Temp
//	          present-value: 21.5
//	          units: 62
type DatabaseConfig struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig describes one simulated device.
type DeviceConfig struct {
	Instance     uint32         `yaml:"instance"`
	Name         string         `yaml:"name"`
	VendorID     uint16         `yaml:"vendor-id"`
	ReadMultiple *bool          `yaml:"read-multiple,omitempty"`
	Objects      []ObjectConfig `yaml:"objects"`
}

// ObjectConfig describes one object and its property values.
type ObjectConfig struct {
	Object     string         `yaml:"object"`
	Properties map[string]any `yaml:"properties"`
}

// MemoryStore is an in-memory PropertyStore. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[model.DeviceID]*memDevice
}

type memDevice struct {
	config  DeviceConfig
	order   []model.ObjectIdentifier
	objects map[model.ObjectIdentifier]map[model.PropertyIdentifier]any
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[model.DeviceID]*memDevice)}
}

// LoadMemoryStore reads a YAML database from path.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMemoryStore(f)
}

// ReadMemoryStore reads a YAML database.
func ReadMemoryStore(r io.Reader) (*MemoryStore, error) {
	var cfg DatabaseConfig
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse database: %w", err)
	}

	s := NewMemoryStore()
	for _, dc := range cfg.Devices {
		if err := s.AddDevice(dc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddDevice adds or replaces a device. The device object is created when the
// config lacks one, and its identity properties are filled in.
func (s *MemoryStore) AddDevice(dc DeviceConfig) error {
	id := model.DeviceID(dc.Instance)
	if dc.Instance > model.MaxInstance {
		return fmt.Errorf("device instance %d out of range", dc.Instance)
	}

	dev := &memDevice{
		config:  dc,
		objects: make(map[model.ObjectIdentifier]map[model.PropertyIdentifier]any),
	}
	devObj := model.DeviceObject(id)
	dev.addObject(devObj)

	for _, oc := range dc.Objects {
		oid, err := model.ParseObjectIdentifier(oc.Object)
		if err != nil {
			return fmt.Errorf("device %d: %w", dc.Instance, err)
		}
		props := dev.addObject(oid)
		for name, v := range oc.Properties {
			p, err := model.ParsePropertyIdentifier(name)
			if err != nil {
				return fmt.Errorf("device %d object %s: %w", dc.Instance, oid, err)
			}
			props[p] = normalizeYAML(v)
		}
	}

	// Identity properties.
	for _, oid := range dev.order {
		props := dev.objects[oid]
		props[model.PropObjectIdentifier] = oid.String()
		props[model.PropObjectType] = oid.Type.String()
		if _, ok := props[model.PropObjectName]; !ok {
			props[model.PropObjectName] = oid.String()
		}
	}
	deviceProps := dev.objects[devObj]
	if dc.Name != "" {
		deviceProps[model.PropObjectName] = dc.Name
	}
	deviceProps[model.PropVendorIdentifier] = int64(dc.VendorID)
	list := make([]any, 0, len(dev.order))
	for _, oid := range dev.order {
		list = append(list, oid.String())
	}
	deviceProps[model.PropObjectList] = list

	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[id] = dev
	return nil
}

func (d *memDevice) addObject(oid model.ObjectIdentifier) map[model.PropertyIdentifier]any {
	props, ok := d.objects[oid]
	if !ok {
		props = make(map[model.PropertyIdentifier]any)
		d.objects[oid] = props
		d.order = append(d.order, oid)
	}
	return props
}

// HasDevice implements PropertyStore.
func (s *MemoryStore) HasDevice(device model.DeviceID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[device]
	return ok
}

// ReadProperty implements PropertyStore.
func (s *MemoryStore) ReadProperty(device model.DeviceID, object model.ObjectIdentifier, ref model.PropertyReference) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dev, ok := s.devices[device]
	if !ok {
		return nil, &model.PropertyError{Class: model.ErrorClassDevice, Code: model.ErrorCodeUnknownDevice}
	}
	props, ok := dev.objects[object]
	if !ok {
		return nil, &model.PropertyError{Class: model.ErrorClassObject, Code: model.ErrorCodeUnknownObject}
	}
	v, ok := props[ref.Property]
	if !ok {
		return nil, &model.PropertyError{Class: model.ErrorClassProperty, Code: model.ErrorCodeUnknownProperty}
	}
	v, err := model.ElementAt(v, ref.Index)
	if err != nil {
		return nil, model.AsPropertyError(err)
	}
	return v, nil
}

// SetProperty changes a property value of an existing object.
func (s *MemoryStore) SetProperty(device model.DeviceID, object model.ObjectIdentifier, property model.PropertyIdentifier, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, ok := s.devices[device]
	if !ok {
		return &model.PropertyError{Class: model.ErrorClassDevice, Code: model.ErrorCodeUnknownDevice}
	}
	props, ok := dev.objects[object]
	if !ok {
		return &model.PropertyError{Class: model.ErrorClassObject, Code: model.ErrorCodeUnknownObject}
	}
	props[property] = normalizeYAML(value)
	return nil
}

// Objects returns the objects of device in database order.
func (s *MemoryStore) Objects(device model.DeviceID) []model.ObjectIdentifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dev, ok := s.devices[device]
	if !ok {
		return nil
	}
	return append([]model.ObjectIdentifier(nil), dev.order...)
}

// Devices returns the configs of the stored devices ordered by instance.
func (s *MemoryStore) Devices() []DeviceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeviceConfig, 0, len(s.devices))
	for _, dev := range s.devices {
		out = append(out, dev.config)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// normalizeYAML converts YAML-decoded values to the types CBOR decoding
// produces on the client, so values compare equal on both ends.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint32:
		return int64(x)
	case uint16:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeYAML(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

var _ PropertyStore = (*MemoryStore)(nil)
