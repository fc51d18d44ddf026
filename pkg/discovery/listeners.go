package discovery

import (
	"sync"

	"github.com/google/uuid"
)

// AnnouncementListeners is a registry of announcement callbacks. Directory
// implementations embed it. The zero value is ready to use.
type AnnouncementListeners struct {
	mu        sync.Mutex
	listeners map[ListenerID]func(Announcement)
}

// AddAnnouncementListener registers fn and returns its ID.
func (l *AnnouncementListeners) AddAnnouncementListener(fn func(Announcement)) ListenerID {
	id := uuid.New()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listeners == nil {
		l.listeners = make(map[ListenerID]func(Announcement))
	}
	l.listeners[id] = fn
	return id
}

// RemoveAnnouncementListener unregisters id.
func (l *AnnouncementListeners) RemoveAnnouncementListener(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.listeners[id]; !ok {
		return false
	}
	delete(l.listeners, id)
	return true
}

// ListenerCount returns the number of registered listeners.
func (l *AnnouncementListeners) ListenerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// Dispatch delivers a to every listener registered at the time of the call.
// Listeners run on the calling goroutine, outside the registry lock, so they
// may add or remove listeners.
func (l *AnnouncementListeners) Dispatch(a Announcement) {
	l.mu.Lock()
	fns := make([]func(Announcement), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(a)
	}
}
