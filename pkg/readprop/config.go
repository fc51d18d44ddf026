package readprop

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bacstack/bacnet-go/pkg/cache"
	"github.com/bacstack/bacnet-go/pkg/clock"
	"github.com/bacstack/bacnet-go/pkg/discovery"
)

// DefaultMaxConcurrentDevices bounds the device tasks running at once across
// all ReadProperties calls of a Reader.
const DefaultMaxConcurrentDevices = 8

// Config errors.
var (
	ErrNoTransport = errors.New("readprop: transport is required")
	ErrNoDirectory = errors.New("readprop: directory or finder is required")
)

// Config configures a Reader.
type Config struct {
	// Transport sends batch reads. Required.
	Transport Transport

	// Finder resolves unknown devices. If nil, one is built on Directory.
	Finder *discovery.Finder

	// Directory is used when Finder is nil, and by Start for unsolicited
	// announcements.
	Directory discovery.Directory

	// Clock drives cache expiry. If nil, the system clock is used.
	Clock clock.Clock

	// Policies decides how long values and device handles are cached.
	// If nil, cache.NewPolicies() is used.
	Policies *cache.Policies

	// Logger is used for logging. If nil, logging is disabled.
	Logger *slog.Logger

	// MaxConcurrentDevices bounds concurrent device tasks (default: 8).
	MaxConcurrentDevices int

	// DefaultDiscoveryTimeout applies when a call passes a timeout <= 0.
	DefaultDiscoveryTimeout time.Duration
}

// DefaultConfig returns a config with default limits. Transport and
// Directory must still be set.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentDevices:    DefaultMaxConcurrentDevices,
		DefaultDiscoveryTimeout: discovery.DefaultDiscoveryTimeout,
	}
}

func (c *Config) applyDefaults() error {
	if c.Transport == nil {
		return ErrNoTransport
	}
	if c.Finder == nil {
		if c.Directory == nil {
			return ErrNoDirectory
		}
		c.Finder = discovery.NewFinder(c.Directory, c.Logger)
	}
	if c.Directory == nil {
		c.Directory = c.Finder.Directory()
	}
	if c.Clock == nil {
		c.Clock = clock.System{}
	}
	if c.Policies == nil {
		c.Policies = cache.NewPolicies()
	}
	if c.MaxConcurrentDevices <= 0 {
		c.MaxConcurrentDevices = DefaultMaxConcurrentDevices
	}
	if c.DefaultDiscoveryTimeout <= 0 {
		c.DefaultDiscoveryTimeout = discovery.DefaultDiscoveryTimeout
	}
	return nil
}
