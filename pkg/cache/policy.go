package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/bacstack/bacnet-go/pkg/clock"
)

// State is the expiry state a policy computes when an entity is inserted.
// It is opaque to everything but the policy that produced it.
type State struct {
	expiresAt time.Time
}

// Policy decides whether a cached entity is still valid.
type Policy interface {
	// PrepareState computes the expiry state at insertion time.
	PrepareState(c clock.Clock) State

	// HasExpired reports whether state is no longer valid at the clock's time.
	HasExpired(c clock.Clock, state State) bool

	String() string
}

type neverCache struct{}

func (neverCache) PrepareState(clock.Clock) State      { return State{} }
func (neverCache) HasExpired(clock.Clock, State) bool { return true }
func (neverCache) String() string                     { return "never-cache" }

type neverExpire struct{}

func (neverExpire) PrepareState(clock.Clock) State      { return State{} }
func (neverExpire) HasExpired(clock.Clock, State) bool { return false }
func (neverExpire) String() string                     { return "never-expire" }

// Policy variants.
var (
	// NeverCache reports every entity as expired.
	NeverCache Policy = neverCache{}

	// NeverExpire keeps entities until they are removed.
	NeverExpire Policy = neverExpire{}
)

// TimedExpiry keeps an entity for a fixed duration after insertion.
// An entity inserted at t0 expires at t0+d. The boundary is inclusive: an
// access at exactly t0+d is a miss, one just before it is a hit.
type TimedExpiry time.Duration

// PrepareState returns now + d.
func (d TimedExpiry) PrepareState(c clock.Clock) State {
	return State{expiresAt: c.Now().Add(time.Duration(d))}
}

// HasExpired reports whether the clock has reached the expiry time.
func (d TimedExpiry) HasExpired(c clock.Clock, state State) bool {
	return !c.Now().Before(state.expiresAt)
}

func (d TimedExpiry) String() string {
	return time.Duration(d).String()
}

// ParsePolicy parses "never-cache", "never-expire" or a positive Go duration.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never-cache", "never", "none":
		return NeverCache, nil
	case "never-expire", "forever":
		return NeverExpire, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid cache policy %q", s)
	}
	if d <= 0 {
		return nil, fmt.Errorf("invalid cache policy %q: duration must be positive", s)
	}
	return TimedExpiry(d), nil
}
