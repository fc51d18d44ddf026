package cache

import (
	"sync"

	"github.com/bacstack/bacnet-go/pkg/clock"
)

// RemoteEntityCache stores entities learned from remote devices.
//
// All operations hold one mutex; network I/O dominates the cost of a read so
// contention on it is not a concern. Expired entries are evicted only as a
// side effect of Get and GetByPredicate.
type RemoteEntityCache[K comparable, T any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[K]*Entity[T]
}

// NewRemoteEntityCache creates an empty cache. A nil clock uses the system clock.
func NewRemoteEntityCache[K comparable, T any](c clock.Clock) *RemoteEntityCache[K, T] {
	if c == nil {
		c = clock.System{}
	}
	return &RemoteEntityCache[K, T]{
		clock:   c,
		entries: make(map[K]*Entity[T]),
	}
}

// Get returns the value for key if present and not expired.
// An expired entry is removed.
func (c *RemoteEntityCache[K, T]) Get(key K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.HasExpired(c.clock) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// GetByPredicate returns the first unexpired value accepted by pred.
// Every expired entry encountered during the scan is removed. Iteration order
// is unspecified.
func (c *RemoteEntityCache[K, T]) GetByPredicate(pred func(key K, value T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.HasExpired(c.clock) {
			delete(c.entries, k)
			continue
		}
		if pred(k, e.value) {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

// Put stores value under key, replacing any previous entry.
func (c *RemoteEntityCache[K, T]) Put(key K, value T, policy Policy) {
	e := NewEntity(c.clock, value, policy)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Remove deletes key and returns its previous value, expired or not.
func (c *RemoteEntityCache[K, T]) Remove(key K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.entries, key)
	return e.value, true
}

// Clear drops all entries.
func (c *RemoteEntityCache[K, T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries, including expired entries not
// yet evicted.
func (c *RemoteEntityCache[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Range calls fn for every unexpired entry until fn returns false. Expired
// entries are evicted. fn must not call back into the cache.
func (c *RemoteEntityCache[K, T]) Range(fn func(key K, value T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.HasExpired(c.clock) {
			delete(c.entries, k)
			continue
		}
		if !fn(k, e.value) {
			return
		}
	}
}
