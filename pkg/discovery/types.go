package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type devices advertise.
	ServiceType = "_bacnet._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the BACnet/IP well-known port (0xBAC0).
	DefaultPort = 47808
)

// TXT record keys.
const (
	TXTKeyDeviceInstance = "DI"
	TXTKeyMaxAPDU        = "MA"
	TXTKeySegmentation   = "SG"
	TXTKeyVendorID       = "VI"
	TXTKeyReadMultiple   = "RPM"
	TXTKeyDeviceName     = "DN"
)

// Timing constants.
const (
	// BrowseWindow is how long a WhoIs browse collects answers.
	BrowseWindow = 3 * time.Second

	// DefaultDiscoveryTimeout bounds a Future when the caller gives no timeout.
	DefaultDiscoveryTimeout = 5 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// DefaultMaxAPDU is assumed when a device does not advertise MA.
	DefaultMaxAPDU = 1476
)

// Errors.
var (
	ErrDiscoveryTimeout   = errors.New("device discovery timed out")
	ErrDiscoveryCancelled = errors.New("device discovery cancelled")
	ErrDirectoryClosed    = errors.New("directory closed")
	ErrMissingRequired    = errors.New("missing required TXT record")
	ErrInvalidTXTRecord   = errors.New("invalid TXT record")
)

// Segmentation is the segmentation support a device advertises.
type Segmentation uint8

// Segmentation values.
const (
	SegmentationBoth     Segmentation = 0
	SegmentationTransmit Segmentation = 1
	SegmentationReceive  Segmentation = 2
	SegmentationNone     Segmentation = 3
)

func (s Segmentation) String() string {
	switch s {
	case SegmentationBoth:
		return "both"
	case SegmentationTransmit:
		return "transmit"
	case SegmentationReceive:
		return "receive"
	case SegmentationNone:
		return "none"
	default:
		return "segmentation-" + strconv.Itoa(int(s))
	}
}

// RemoteDevice is a resolved device handle: where to reach the device and
// what it can do.
type RemoteDevice struct {
	ID           model.DeviceID
	Address      string // host:port
	MaxAPDU      uint32
	Segmentation Segmentation
	VendorID     uint16
	ReadMultiple bool
	Name         string
}

func (d *RemoteDevice) String() string {
	if d.Name != "" {
		return fmt.Sprintf("device %d (%s) at %s", d.ID, d.Name, d.Address)
	}
	return fmt.Sprintf("device %d at %s", d.ID, d.Address)
}

// Clone returns a copy of the handle.
func (d *RemoteDevice) Clone() *RemoteDevice {
	c := *d
	return &c
}

// Announcement is a device advertising its identity and address.
type Announcement struct {
	Device *RemoteDevice
}

// WhoIs selects the devices that should announce themselves.
// Low and High are inclusive.
type WhoIs struct {
	Low  model.DeviceID
	High model.DeviceID
}

// WhoIsDevice selects exactly one device.
func WhoIsDevice(id model.DeviceID) WhoIs {
	return WhoIs{Low: id, High: id}
}

// WhoIsAll selects every device.
func WhoIsAll() WhoIs {
	return WhoIs{Low: 0, High: model.DeviceID(model.MaxInstance)}
}

// Matches reports whether id is in range.
func (w WhoIs) Matches(id model.DeviceID) bool {
	return id >= w.Low && id <= w.High
}

func (w WhoIs) String() string {
	if w.Low == w.High {
		return "who-is " + w.Low.String()
	}
	return "who-is " + w.Low.String() + "-" + w.High.String()
}

// ListenerID identifies a registered announcement listener.
type ListenerID = uuid.UUID

// Directory broadcasts discovery requests and delivers announcements.
type Directory interface {
	// BroadcastDiscovery sends a WhoIs. It does not wait for answers;
	// announcements arrive through the registered listeners.
	BroadcastDiscovery(ctx context.Context, w WhoIs) error

	// AddAnnouncementListener registers fn for every announcement.
	// fn may be called from any goroutine and must not block.
	AddAnnouncementListener(fn func(Announcement)) ListenerID

	// RemoveAnnouncementListener unregisters a listener. It reports whether
	// the listener was registered.
	RemoveAnnouncementListener(id ListenerID) bool
}
