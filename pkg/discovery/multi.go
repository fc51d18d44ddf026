package discovery

import (
	"context"
	"errors"
)

// MultiDirectory broadcasts on several directories at once and merges their
// announcements.
type MultiDirectory struct {
	AnnouncementListeners

	dirs    []Directory
	forward []ListenerID
}

// NewMultiDirectory creates a directory over dirs. Close detaches it from them.
func NewMultiDirectory(dirs ...Directory) *MultiDirectory {
	m := &MultiDirectory{dirs: dirs}
	for _, d := range dirs {
		m.forward = append(m.forward, d.AddAnnouncementListener(m.Dispatch))
	}
	return m
}

// BroadcastDiscovery sends w on every directory. It fails only when every
// directory fails.
func (m *MultiDirectory) BroadcastDiscovery(ctx context.Context, w WhoIs) error {
	var errs []error
	for _, d := range m.dirs {
		if err := d.BroadcastDiscovery(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	if len(m.dirs) > 0 && len(errs) == len(m.dirs) {
		return errors.Join(errs...)
	}
	return nil
}

// Close removes the forwarding listeners from the underlying directories.
func (m *MultiDirectory) Close() error {
	for i, d := range m.dirs {
		d.RemoveAnnouncementListener(m.forward[i])
	}
	m.forward = nil
	m.dirs = nil
	return nil
}

var _ Directory = (*MultiDirectory)(nil)
