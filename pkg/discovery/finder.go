package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// Callbacks receive the outcome of FindAsync. Any of them may be nil.
// OnSuccess or OnTimeout runs first if applicable, then OnFinally runs exactly
// once. A cancelled lookup only runs OnFinally.
type Callbacks struct {
	OnSuccess func(*RemoteDevice)
	OnTimeout func()
	OnFinally func()
}

// Finder starts device lookups against a Directory.
type Finder struct {
	dir    Directory
	logger *slog.Logger
}

// NewFinder creates a Finder. logger may be nil to disable logging.
func NewFinder(dir Directory, logger *slog.Logger) *Finder {
	return &Finder{dir: dir, logger: logger}
}

// Directory returns the directory the finder broadcasts on.
func (f *Finder) Directory() Directory {
	return f.dir
}

// Find registers a listener for device id and broadcasts a WhoIs for exactly
// that device. Wait for the outcome with Future.Get.
//
// If the broadcast fails the future is cancelled, its listener removed, and
// the error returned.
func (f *Finder) Find(ctx context.Context, id model.DeviceID) (*Future, error) {
	fut := newFuture(id, f.dir)
	if !fut.start() {
		return fut, nil
	}

	f.debugLog("discovery: who-is", "deviceID", id)
	if err := f.dir.BroadcastDiscovery(ctx, WhoIsDevice(id)); err != nil {
		fut.markDone(StateCancelled, nil)
		return nil, fmt.Errorf("broadcast who-is %d: %w", id, err)
	}
	return fut, nil
}

// FindAsync is the callback form of Find. The callbacks run on a goroutine
// owned by the lookup once it reaches a terminal state; a timeout <= 0 uses
// DefaultDiscoveryTimeout. If FindAsync returns an error no callback runs.
func (f *Finder) FindAsync(id model.DeviceID, cb Callbacks, timeout time.Duration) (*Future, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}

	fut, err := f.Find(context.Background(), id)
	if err != nil {
		return nil, err
	}

	go func() {
		dev, err := fut.Get(context.Background(), timeout)
		switch {
		case err == nil:
			if cb.OnSuccess != nil {
				cb.OnSuccess(dev)
			}
		case fut.State() == StateTimedOut:
			if cb.OnTimeout != nil {
				cb.OnTimeout()
			}
		}
		f.debugLog("discovery: finished", "deviceID", id, "state", fut.State())
		if cb.OnFinally != nil {
			cb.OnFinally()
		}
	}()
	return fut, nil
}

// Resolve is Find followed by Get.
func (f *Finder) Resolve(ctx context.Context, id model.DeviceID, timeout time.Duration) (*RemoteDevice, error) {
	fut, err := f.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fut.Get(ctx, timeout)
}

// debugLog logs a debug message if logging is enabled.
func (f *Finder) debugLog(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
