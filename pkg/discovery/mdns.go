package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// ErrNotAdvertised is returned when updating or stopping an unknown advertisement.
var ErrNotAdvertised = errors.New("device not advertised")

// DirectoryConfig configures an MDNSDirectory.
type DirectoryConfig struct {
	// BrowseWindow is how long each WhoIs browse collects answers.
	// Default: 3 seconds.
	BrowseWindow time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultDirectoryConfig returns the default directory configuration.
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		BrowseWindow: BrowseWindow,
	}
}

// MDNSDirectory implements Directory over DNS-SD. A WhoIs becomes a bounded
// browse of ServiceType; every matching service entry is delivered to the
// listeners as an Announcement.
type MDNSDirectory struct {
	AnnouncementListeners

	config DirectoryConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMDNSDirectory creates a directory. Close it to stop running browses.
func NewMDNSDirectory(config DirectoryConfig) *MDNSDirectory {
	if config.BrowseWindow <= 0 {
		config.BrowseWindow = BrowseWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MDNSDirectory{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// BroadcastDiscovery starts a browse for the devices selected by w and
// returns immediately. The browse runs for the configured window.
func (d *MDNSDirectory) BroadcastDiscovery(ctx context.Context, w WhoIs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.ctx.Err() != nil {
		return ErrDirectoryClosed
	}

	browseCtx, cancel := context.WithTimeout(d.ctx, d.config.BrowseWindow)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.browse(browseCtx, w)
	}()
	return nil
}

// Watch browses until ctx is done or the directory is closed, delivering
// every device that appears. This is how unsolicited announcements reach
// persistent listeners.
func (d *MDNSDirectory) Watch(ctx context.Context) error {
	if d.ctx.Err() != nil {
		return ErrDirectoryClosed
	}
	watchCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	d.wg.Add(1)
	defer d.wg.Done()
	d.browse(watchCtx, WhoIsAll())
	return ctx.Err()
}

// Close stops all browses and waits for them to finish.
func (d *MDNSDirectory) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}

func (d *MDNSDirectory) browse(ctx context.Context, w WhoIs) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, d.browserOptions()...); err != nil {
			d.debugLog("mdns: browse failed", "error", err)
		}
	}()

	// One announcement per device and address within a browse; entries
	// repeat once per interface.
	seen := make(map[string]bool)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			dev := entryToDevice(entry)
			if dev == nil || !w.Matches(dev.ID) {
				continue
			}
			key := dev.ID.String() + "@" + dev.Address
			if seen[key] {
				continue
			}
			seen[key] = true
			d.debugLog("mdns: announcement", "deviceID", dev.ID, "address", dev.Address)
			d.Dispatch(Announcement{Device: dev})

		case _, ok := <-removed:
			if !ok {
				removed = nil
			}

		case <-ctx.Done():
			return
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (d *MDNSDirectory) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if iface := lookupInterface(d.config.Interface); iface != nil {
		opts = append(opts, zeroconf.SelectIfaces(iface))
	}
	return opts
}

func (d *MDNSDirectory) debugLog(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, args...)
	}
}

// entryToDevice converts a zeroconf entry to a device handle, or nil if the
// entry does not describe a usable device.
func entryToDevice(entry *zeroconf.ServiceEntry) *RemoteDevice {
	dev, err := DecodeDeviceTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = entry.HostName
	default:
		return nil
	}
	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}
	dev.Address = net.JoinHostPort(host, strconv.Itoa(port))
	return dev
}

// AdvertiserConfig configures an MDNSAdvertiser.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL overrides the record TTL. Zero uses the zeroconf default.
	TTL time.Duration
}

// MDNSAdvertiser publishes devices so MDNSDirectory browses find them.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	servers map[model.DeviceID]*zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{
		config:  config,
		servers: make(map[model.DeviceID]*zeroconf.Server),
	}
}

// Advertise starts publishing dev on port, replacing a previous
// advertisement of the same device.
func (a *MDNSAdvertiser) Advertise(dev *RemoteDevice, port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if server, exists := a.servers[dev.ID]; exists {
		server.Shutdown()
		delete(a.servers, dev.ID)
	}

	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		InstanceName(dev),
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeDeviceTXT(dev)),
		lookupInterface(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register device %d: %w", dev.ID, err)
	}

	a.servers[dev.ID] = server
	return nil
}

// Update replaces the TXT records of an advertised device.
func (a *MDNSAdvertiser) Update(dev *RemoteDevice) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[dev.ID]
	if !exists {
		return ErrNotAdvertised
	}
	server.SetText(TXTRecordsToStrings(EncodeDeviceTXT(dev)))
	return nil
}

// Stop withdraws one device.
func (a *MDNSAdvertiser) Stop(id model.DeviceID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[id]
	if !exists {
		return ErrNotAdvertised
	}
	server.Shutdown()
	delete(a.servers, id)
	return nil
}

// StopAll withdraws every device.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, server := range a.servers {
		server.Shutdown()
		delete(a.servers, id)
	}
}

// lookupInterface returns the named interface, or nil for all interfaces.
func lookupInterface(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Ensure MDNSDirectory implements Directory.
var _ Directory = (*MDNSDirectory)(nil)
