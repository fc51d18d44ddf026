package cache

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// Overrides is a set of policy registrations read from YAML:
//
//	device:
//	  - device: 1200
//	    policy: 10m
//	object:
//	  - object: analog-input,1
//	    policy: never-expire
//	property:
//	  - property: present-value
//	    policy: 5s
//	  - device: 1200
//	    object: analog-value,3
//	    property: present-value
//	    policy: never-cache
//
// An omitted axis or "*" is a wildcard.
type Overrides struct {
	Device   []OverrideRule `yaml:"device"`
	Object   []OverrideRule `yaml:"object"`
	Property []OverrideRule `yaml:"property"`
}

// OverrideRule is one policy registration.
type OverrideRule struct {
	Device   string `yaml:"device,omitempty"`
	Object   string `yaml:"object,omitempty"`
	Property string `yaml:"property,omitempty"`
	Policy   string `yaml:"policy"`
}

// LoadOverrides reads overrides from r.
func LoadOverrides(r io.Reader) (*Overrides, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes overrides from YAML.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	return &o, nil
}

// Apply validates every rule and registers it with p. Nothing is registered
// if any rule is invalid.
func (o *Overrides) Apply(p *Policies) error {
	type devicePut struct {
		key    DeviceKey
		policy Policy
	}
	type objectPut struct {
		key    ObjectKey
		policy Policy
	}
	type propertyPut struct {
		key    PropertyKey
		policy Policy
	}
	var (
		devices    []devicePut
		objects    []objectPut
		properties []propertyPut
	)

	for i, r := range o.Device {
		if r.Object != "" || r.Property != "" {
			return fmt.Errorf("device rule %d: object and property are not allowed", i)
		}
		dev, policy, err := r.deviceAndPolicy()
		if err != nil {
			return fmt.Errorf("device rule %d: %w", i, err)
		}
		devices = append(devices, devicePut{DeviceKey{Device: dev}, policy})
	}

	for i, r := range o.Object {
		if r.Property != "" {
			return fmt.Errorf("object rule %d: property is not allowed", i)
		}
		dev, policy, err := r.deviceAndPolicy()
		if err != nil {
			return fmt.Errorf("object rule %d: %w", i, err)
		}
		obj, err := parseObjectScope(r.Object)
		if err != nil {
			return fmt.Errorf("object rule %d: %w", i, err)
		}
		objects = append(objects, objectPut{ObjectKey{Device: dev, Object: obj}, policy})
	}

	for i, r := range o.Property {
		dev, policy, err := r.deviceAndPolicy()
		if err != nil {
			return fmt.Errorf("property rule %d: %w", i, err)
		}
		obj, err := parseObjectScope(r.Object)
		if err != nil {
			return fmt.Errorf("property rule %d: %w", i, err)
		}
		prop, err := parsePropertyScope(r.Property)
		if err != nil {
			return fmt.Errorf("property rule %d: %w", i, err)
		}
		properties = append(properties, propertyPut{PropertyKey{Device: dev, Object: obj, Property: prop}, policy})
	}

	for _, d := range devices {
		p.PutDevicePolicy(d.key, d.policy)
	}
	for _, ob := range objects {
		p.PutObjectPolicy(ob.key, ob.policy)
	}
	for _, pr := range properties {
		p.PutPropertyPolicy(pr.key, pr.policy)
	}
	return nil
}

func (r OverrideRule) deviceAndPolicy() (Scope[model.DeviceID], Policy, error) {
	dev, err := parseDeviceScope(r.Device)
	if err != nil {
		return dev, nil, err
	}
	policy, err := ParsePolicy(r.Policy)
	return dev, policy, err
}

func isWildcard(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "*"
}

func parseDeviceScope(s string) (Scope[model.DeviceID], error) {
	if isWildcard(s) {
		return Wildcard[model.DeviceID](), nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || uint32(n) > model.MaxInstance {
		return Scope[model.DeviceID]{}, fmt.Errorf("invalid device %q", s)
	}
	return Specific(model.DeviceID(n)), nil
}

func parseObjectScope(s string) (Scope[model.ObjectIdentifier], error) {
	if isWildcard(s) {
		return Wildcard[model.ObjectIdentifier](), nil
	}
	oid, err := model.ParseObjectIdentifier(s)
	if err != nil {
		return Scope[model.ObjectIdentifier]{}, err
	}
	return Specific(oid), nil
}

func parsePropertyScope(s string) (Scope[model.PropertyIdentifier], error) {
	if isWildcard(s) {
		return Wildcard[model.PropertyIdentifier](), nil
	}
	pid, err := model.ParsePropertyIdentifier(s)
	if err != nil {
		return Scope[model.PropertyIdentifier]{}, err
	}
	return Specific(pid), nil
}
