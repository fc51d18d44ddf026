package readprop

import (
	"context"
	"sort"
	"time"

	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/model"
)

// Device returns the handle for id, from the cache or by discovery.
func (r *Reader) Device(ctx context.Context, id model.DeviceID, timeout time.Duration) (*discovery.RemoteDevice, error) {
	if dev, ok := r.devices.Get(id); ok {
		return dev.Clone(), nil
	}
	if timeout <= 0 {
		timeout = r.config.DefaultDiscoveryTimeout
	}
	dev, err := r.discover(ctx, id, timeout)
	if err != nil {
		return nil, err
	}
	return dev.Clone(), nil
}

// discover resolves id with a fresh WhoIs and caches the handle under the
// device policy.
func (r *Reader) discover(ctx context.Context, id model.DeviceID, timeout time.Duration) (*discovery.RemoteDevice, error) {
	dev, err := r.config.Finder.Resolve(ctx, id, timeout)
	if err != nil {
		return nil, err
	}
	r.LearnDevice(dev)
	return dev, nil
}

// LearnDevice caches a device handle under its device policy. Another cached
// device at the same address is evicted: only one device answers there.
func (r *Reader) LearnDevice(dev *discovery.RemoteDevice) {
	if dev == nil {
		return
	}
	for {
		other, ok := r.devices.GetByPredicate(func(id model.DeviceID, h *discovery.RemoteDevice) bool {
			return id != dev.ID && h.Address == dev.Address
		})
		if !ok {
			break
		}
		r.devices.Remove(other.ID)
		r.debugLog("device handle replaced at address",
			"deviceID", other.ID,
			"address", other.Address,
			"by", dev.ID)
	}
	r.devices.Put(dev.ID, dev.Clone(), r.config.Policies.DevicePolicyOrDefault(dev.ID))
}

// EvictDevice drops the cached handle for id.
func (r *Reader) EvictDevice(id model.DeviceID) bool {
	_, ok := r.devices.Remove(id)
	return ok
}

// DeviceByAddress returns the cached handle of the device at address.
func (r *Reader) DeviceByAddress(address string) (*discovery.RemoteDevice, bool) {
	dev, ok := r.devices.GetByPredicate(func(_ model.DeviceID, h *discovery.RemoteDevice) bool {
		return h.Address == address
	})
	if !ok {
		return nil, false
	}
	return dev.Clone(), true
}

// Devices returns the unexpired cached handles ordered by device ID.
func (r *Reader) Devices() []*discovery.RemoteDevice {
	var out []*discovery.RemoteDevice
	r.devices.Range(func(_ model.DeviceID, dev *discovery.RemoteDevice) bool {
		out = append(out, dev.Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start caches handles from every announcement the directory delivers,
// including unsolicited ones. Calling Start twice has no further effect.
func (r *Reader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listening {
		return
	}
	r.listener = r.config.Directory.AddAnnouncementListener(func(a discovery.Announcement) {
		r.LearnDevice(a.Device)
	})
	r.listening = true
}

// Stop removes the listener installed by Start.
func (r *Reader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return
	}
	r.config.Directory.RemoveAnnouncementListener(r.listener)
	r.listening = false
}
