package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// StaticDirectory is a Directory over a fixed table of devices, for networks
// where devices are configured rather than discovered. A WhoIs is answered
// asynchronously with an announcement for every matching known device.
type StaticDirectory struct {
	AnnouncementListeners

	mu      sync.Mutex
	devices map[model.DeviceID]*RemoteDevice
	wg      sync.WaitGroup
}

// NewStaticDirectory creates a directory that knows devices.
func NewStaticDirectory(devices ...*RemoteDevice) *StaticDirectory {
	d := &StaticDirectory{devices: make(map[model.DeviceID]*RemoteDevice)}
	for _, dev := range devices {
		d.Add(dev)
	}
	return d
}

// Add makes a device answer WhoIs broadcasts.
func (d *StaticDirectory) Add(dev *RemoteDevice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.devices[dev.ID] = dev.Clone()
}

// Remove stops a device from answering.
func (d *StaticDirectory) Remove(id model.DeviceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.devices, id)
}

// Devices returns the known devices ordered by ID.
func (d *StaticDirectory) Devices() []*RemoteDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*RemoteDevice, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BroadcastDiscovery announces every known device matching w.
func (d *StaticDirectory) BroadcastDiscovery(ctx context.Context, w WhoIs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var matches []*RemoteDevice
	for _, dev := range d.Devices() {
		if w.Matches(dev.ID) {
			matches = append(matches, dev)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, dev := range matches {
			d.Dispatch(Announcement{Device: dev})
		}
	}()
	return nil
}

// Announce delivers an unsolicited announcement on the calling goroutine.
func (d *StaticDirectory) Announce(dev *RemoteDevice) {
	d.Dispatch(Announcement{Device: dev.Clone()})
}

// Wait blocks until the announcements of earlier broadcasts are delivered.
func (d *StaticDirectory) Wait() {
	d.wg.Wait()
}

var _ Directory = (*StaticDirectory)(nil)
