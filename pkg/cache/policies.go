package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// ErrNoPolicyFound is returned when no registered policy matches a key at any
// fallback level.
var ErrNoPolicyFound = errors.New("no cache policy found")

// Default time-to-live for the built-in property classes.
const (
	DescriptiveTTL   = 15 * time.Minute
	ConfigurationTTL = time.Minute
)

var (
	// identityProperties never change for the lifetime of an object.
	identityProperties = []model.PropertyIdentifier{
		model.PropObjectIdentifier,
		model.PropObjectName,
		model.PropObjectType,
		model.PropProtocolServicesSupported,
		model.PropProtocolObjectTypesSupported,
		model.PropProtocolVersion,
		model.PropProtocolRevision,
		model.PropVendorIdentifier,
		model.PropVendorName,
		model.PropModelName,
		model.PropMaxAPDULengthAccepted,
		model.PropSegmentationSupported,
	}

	// descriptiveProperties change only on reconfiguration.
	descriptiveProperties = []model.PropertyIdentifier{
		model.PropDescription,
		model.PropObjectList,
		model.PropPropertyList,
		model.PropStateText,
		model.PropUnits,
		model.PropLocation,
		model.PropFirmwareRevision,
		model.PropApplicationSoftwareVersion,
		model.PropActiveText,
		model.PropInactiveText,
		model.PropNumberOfStates,
	}

	// configurationProperties are commissioning settings that operators touch.
	configurationProperties = []model.PropertyIdentifier{
		model.PropOutOfService,
		model.PropCOVIncrement,
		model.PropHighLimit,
		model.PropLowLimit,
		model.PropDeadband,
		model.PropNotificationClass,
	}
)

// Policies resolves the cache policy for devices, objects and properties.
// It is safe for concurrent use.
type Policies struct {
	mu         sync.RWMutex
	devices    map[DeviceKey]Policy
	objects    map[ObjectKey]Policy
	properties map[PropertyKey]Policy
}

// NewPolicies creates a policy engine populated with the default policies.
func NewPolicies() *Policies {
	p := NewEmptyPolicies()

	p.PutDevicePolicy(DeviceKey{}, NeverExpire)
	p.PutObjectPolicy(ObjectKey{}, NeverExpire)
	p.PutPropertyPolicy(PropertyKey{}, NeverCache)

	for _, id := range identityProperties {
		p.PutPropertyPolicy(AnyProperty(id), NeverExpire)
	}
	for _, id := range descriptiveProperties {
		p.PutPropertyPolicy(AnyProperty(id), TimedExpiry(DescriptiveTTL))
	}
	for _, id := range configurationProperties {
		p.PutPropertyPolicy(AnyProperty(id), TimedExpiry(ConfigurationTTL))
	}
	return p
}

// NewEmptyPolicies creates a policy engine with no policies registered.
func NewEmptyPolicies() *Policies {
	return &Policies{
		devices:    make(map[DeviceKey]Policy),
		objects:    make(map[ObjectKey]Policy),
		properties: make(map[PropertyKey]Policy),
	}
}

// PutDevicePolicy registers a policy for a device key, replacing any previous one.
func (p *Policies) PutDevicePolicy(key DeviceKey, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[key] = policy
}

// GetDevicePolicy resolves the policy for a device key.
func (p *Policies) GetDevicePolicy(key DeviceKey) (Policy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, k := range key.lookupOrder() {
		if policy, ok := p.devices[k]; ok {
			return policy, true
		}
	}
	return nil, false
}

// RemoveDevicePolicy removes the policy registered at exactly key.
func (p *Policies) RemoveDevicePolicy(key DeviceKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.devices[key]
	delete(p.devices, key)
	return ok
}

// PutObjectPolicy registers a policy for an object key, replacing any previous one.
func (p *Policies) PutObjectPolicy(key ObjectKey, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = policy
}

// GetObjectPolicy resolves the policy for an object key.
func (p *Policies) GetObjectPolicy(key ObjectKey) (Policy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, k := range key.lookupOrder() {
		if policy, ok := p.objects[k]; ok {
			return policy, true
		}
	}
	return nil, false
}

// RemoveObjectPolicy removes the policy registered at exactly key.
func (p *Policies) RemoveObjectPolicy(key ObjectKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.objects[key]
	delete(p.objects, key)
	return ok
}

// PutPropertyPolicy registers a policy for a property key, replacing any previous one.
func (p *Policies) PutPropertyPolicy(key PropertyKey, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.properties[key] = policy
}

// GetPropertyPolicy resolves the policy for a property key.
func (p *Policies) GetPropertyPolicy(key PropertyKey) (Policy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, k := range key.lookupOrder() {
		if policy, ok := p.properties[k]; ok {
			return policy, true
		}
	}
	return nil, false
}

// RemovePropertyPolicy removes the policy registered at exactly key.
func (p *Policies) RemovePropertyPolicy(key PropertyKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.properties[key]
	delete(p.properties, key)
	return ok
}

// ResolvePropertyPolicy is GetPropertyPolicy returning ErrNoPolicyFound on a miss.
func (p *Policies) ResolvePropertyPolicy(key PropertyKey) (Policy, error) {
	if policy, ok := p.GetPropertyPolicy(key); ok {
		return policy, nil
	}
	return nil, ErrNoPolicyFound
}

// DevicePolicyOrDefault resolves a device policy, defaulting to NeverCache.
func (p *Policies) DevicePolicyOrDefault(device model.DeviceID) Policy {
	if policy, ok := p.GetDevicePolicy(DeviceKeyFor(device)); ok {
		return policy
	}
	return NeverCache
}

// ObjectPolicyOrDefault resolves an object policy, defaulting to NeverCache.
func (p *Policies) ObjectPolicyOrDefault(device model.DeviceID, object model.ObjectIdentifier) Policy {
	if policy, ok := p.GetObjectPolicy(ObjectKeyFor(device, object)); ok {
		return policy
	}
	return NeverCache
}

// PropertyPolicyOrDefault resolves a property policy, defaulting to NeverCache.
func (p *Policies) PropertyPolicyOrDefault(device model.DeviceID, object model.ObjectIdentifier, property model.PropertyIdentifier) Policy {
	if policy, ok := p.GetPropertyPolicy(PropertyKeyFor(device, object, property)); ok {
		return policy
	}
	return NeverCache
}

// Rule is one registered policy, as listed by Rules.
type Rule struct {
	Table  string // "device", "object" or "property"
	Key    string
	Policy Policy
}

// Rules returns every registered policy ordered by table and key.
func (p *Policies) Rules() []Rule {
	p.mu.RLock()
	rules := make([]Rule, 0, len(p.devices)+len(p.objects)+len(p.properties))
	for k, policy := range p.devices {
		rules = append(rules, Rule{Table: "device", Key: k.String(), Policy: policy})
	}
	for k, policy := range p.objects {
		rules = append(rules, Rule{Table: "object", Key: k.String(), Policy: policy})
	}
	for k, policy := range p.properties {
		rules = append(rules, Rule{Table: "property", Key: k.String(), Policy: policy})
	}
	p.mu.RUnlock()

	tableOrder := map[string]int{"device": 0, "object": 1, "property": 2}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Table != rules[j].Table {
			return tableOrder[rules[i].Table] < tableOrder[rules[j].Table]
		}
		return rules[i].Key < rules[j].Key
	})
	return rules
}
