package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// State is the state of a Future.
type State uint8

// Future states. Every state but StatePending is terminal.
const (
	StatePending State = iota
	StateResolved
	StateCancelled
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Future is an in-flight lookup of one device.
type Future struct {
	id  model.DeviceID
	dir Directory

	mu         sync.Mutex
	state      State
	device     *RemoteDevice
	listener   ListenerID
	registered bool

	done chan struct{}
}

func newFuture(id model.DeviceID, dir Directory) *Future {
	return &Future{
		id:   id,
		dir:  dir,
		done: make(chan struct{}),
	}
}

// DeviceID returns the device being looked up.
func (f *Future) DeviceID() model.DeviceID {
	return f.id
}

// State returns the current state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done is closed once the future reaches a terminal state and its listener
// has been removed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get waits until the future is terminal, the timeout elapses or ctx is done.
// A timeout moves the future to TimedOut and a done ctx moves it to Cancelled,
// unless another transition happened first. A timeout <= 0 waits for ctx only.
func (f *Future) Get(ctx context.Context, timeout time.Duration) (*RemoteDevice, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-f.done:
	case <-expired:
		f.markDone(StateTimedOut, nil)
	case <-ctx.Done():
		f.markDone(StateCancelled, nil)
	}
	<-f.done

	return f.Result()
}

// Result returns the outcome without waiting. A pending future reports
// (nil, nil).
func (f *Future) Result() (*RemoteDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateResolved:
		return f.device, nil
	case StateCancelled:
		return nil, ErrDiscoveryCancelled
	case StateTimedOut:
		return nil, ErrDiscoveryTimeout
	default:
		return nil, nil
	}
}

// Cancel moves a pending future to Cancelled. It reports whether this call
// caused the transition; cancelling a terminal future has no effect.
func (f *Future) Cancel() bool {
	return f.markDone(StateCancelled, nil)
}

// start registers the announcement listener. It reports false if the future
// became terminal while registering, in which case the listener is already
// gone again.
func (f *Future) start() bool {
	id := f.dir.AddAnnouncementListener(f.onAnnouncement)

	f.mu.Lock()
	if f.state != StatePending {
		f.mu.Unlock()
		f.dir.RemoveAnnouncementListener(id)
		return false
	}
	f.listener = id
	f.registered = true
	f.mu.Unlock()
	return true
}

func (f *Future) onAnnouncement(a Announcement) {
	if a.Device == nil || a.Device.ID != f.id {
		return
	}
	f.markDone(StateResolved, a.Device)
}

// markDone performs the single terminal transition. Only the caller that moves
// the future out of Pending removes the listener and closes done.
func (f *Future) markDone(state State, device *RemoteDevice) bool {
	f.mu.Lock()
	if f.state != StatePending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.device = device
	listener, registered := f.listener, f.registered
	f.registered = false
	f.mu.Unlock()

	if registered {
		f.dir.RemoveAnnouncementListener(listener)
	}
	close(f.done)
	return true
}
