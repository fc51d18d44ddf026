// Command bacnet-client reads properties from BACnet devices through the
// caching batch reader.
//
// Usage:
//
//	bacnet-client [flags] [device:type:instance:property[index] ...]
//
// Flags:
//
//	-config string             Configuration file path
//	-log-level string          Log level: debug, info, warn, error (default "info")
//	-discovery-timeout dur     How long to wait for unknown devices (default 5s)
//	-interactive               Enable interactive command mode
//	-mdns                      Discover devices over DNS-SD
//	-capture string            Write a protocol capture to this file
//	-policies string           Cache policy overrides file, applied after the config file
//	-tls-ca string             Connect over TLS, verifying devices against this CA (PEM)
//	-tls-insecure              Connect over TLS without verifying certificates
//
// Examples:
//
//	# One-shot read of two properties
//	bacnet-client -config client.yaml 1200:analog-input:1:present-value 1200:device:1200:object-list[0]
//
//	# Interactive shell discovering devices on the LAN
//	bacnet-client -mdns -interactive
//
// Configuration file:
//
//	discovery-timeout: 5s
//	request-timeout: 3s
//	max-concurrent-devices: 8
//	mdns: false
//	devices:
//	  - instance: 1200
//	    address: 192.168.1.20:47808
//	    read-multiple: true
//	policies:
//	  property:
//	    - property: present-value
//	      policy: 10s
//
// Interactive Commands:
//
//	read <ref>...      - Read properties
//	devices            - List known devices
//	whois <device-id>  - Locate a device
//	cache              - Show cache statistics
//	policy [...]       - List or set cache policies
//	evict <device-id>  - Forget a device handle
//	reset              - Clear all caches
//	quit               - Exit the client
package main

import (
	"context"
	"crypto/x509"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bacstack/bacnet-go/cmd/bacnet-client/interactive"
	"github.com/bacstack/bacnet-go/pkg/cache"
	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/interaction"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/readprop"
	"github.com/bacstack/bacnet-go/pkg/transport"
)

// Config holds the client configuration.
type Config struct {
	ConfigFile       string
	LogLevel         string
	DiscoveryTimeout time.Duration
	Interactive      bool
	MDNS             bool
	CaptureFile      string
	PoliciesFile     string
	TLSCA            string
	TLSInsecure      bool
}

// FileConfig is the YAML configuration file.
type FileConfig struct {
	DiscoveryTimeout     time.Duration    `yaml:"discovery-timeout"`
	RequestTimeout       time.Duration    `yaml:"request-timeout"`
	MaxConcurrentDevices int              `yaml:"max-concurrent-devices"`
	MDNS                 bool             `yaml:"mdns"`
	Devices              []DeviceEntry    `yaml:"devices"`
	Policies             *cache.Overrides `yaml:"policies"`
}

// DeviceEntry is a statically configured device.
type DeviceEntry struct {
	Instance     uint32 `yaml:"instance"`
	Address      string `yaml:"address"`
	ReadMultiple *bool  `yaml:"read-multiple"`
	Name         string `yaml:"name"`
	MaxAPDU      uint32 `yaml:"max-apdu"`
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.DurationVar(&config.DiscoveryTimeout, "discovery-timeout", 0, "How long to wait for unknown devices (default 5s)")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&config.MDNS, "mdns", false, "Discover devices over DNS-SD")
	flag.StringVar(&config.CaptureFile, "capture", "", "Write a protocol capture to this file")
	flag.StringVar(&config.PoliciesFile, "policies", "", "Cache policy overrides file, applied after the config file")
	flag.StringVar(&config.TLSCA, "tls-ca", "", "Connect over TLS, verifying devices against this CA (PEM)")
	flag.BoolVar(&config.TLSInsecure, "tls-insecure", false, "Connect over TLS without verifying certificates")
}

func main() {
	flag.Parse()

	logger := setupLogging(config.LogLevel)

	fileConfig, err := loadFileConfig(config.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = fileConfig.DiscoveryTimeout
	}
	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = discovery.DefaultDiscoveryTimeout
	}

	policies := cache.NewPolicies()
	if fileConfig.Policies != nil {
		if err := fileConfig.Policies.Apply(policies); err != nil {
			log.Fatalf("Invalid cache policies: %v", err)
		}
	}
	if config.PoliciesFile != "" {
		if err := applyPolicyFile(config.PoliciesFile, policies); err != nil {
			log.Fatalf("Invalid cache policies: %v", err)
		}
	}

	static := discovery.NewStaticDirectory()
	for _, entry := range fileConfig.Devices {
		dev, err := entry.remoteDevice()
		if err != nil {
			log.Fatalf("Invalid device entry: %v", err)
		}
		static.Add(dev)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dir discovery.Directory = static
	if config.MDNS || fileConfig.MDNS {
		dirConfig := discovery.DefaultDirectoryConfig()
		dirConfig.Logger = logger
		mdns := discovery.NewMDNSDirectory(dirConfig)
		defer mdns.Close()
		go mdns.Watch(ctx)
		dir = discovery.NewMultiDirectory(static, mdns)
		log.Println("Discovering devices over DNS-SD")
	}

	trConfig := interaction.DefaultTransportConfig()
	trConfig.Logger = logger
	if config.CaptureFile != "" {
		fileLogger, err := capture.NewFileLogger(config.CaptureFile)
		if err != nil {
			log.Fatalf("Failed to open capture file: %v", err)
		}
		defer fileLogger.Close()
		trConfig.ProtocolLogger = capture.NewMultiLogger(capture.NewSlogAdapter(logger), fileLogger)
		log.Printf("Capturing protocol traffic to %s", config.CaptureFile)
	}
	tlsConfig, err := clientTLSConfig(config.TLSCA, config.TLSInsecure)
	if err != nil {
		log.Fatalf("Invalid TLS configuration: %v", err)
	}
	trConfig.Client.TLSConfig = tlsConfig
	if fileConfig.RequestTimeout > 0 {
		trConfig.RequestTimeout = fileConfig.RequestTimeout
	}
	tr := interaction.NewTransport(trConfig)
	defer tr.Close()

	readerConfig := readprop.DefaultConfig()
	readerConfig.Transport = tr
	readerConfig.Directory = dir
	readerConfig.Policies = policies
	readerConfig.Logger = logger
	readerConfig.DefaultDiscoveryTimeout = config.DiscoveryTimeout
	if fileConfig.MaxConcurrentDevices > 0 {
		readerConfig.MaxConcurrentDevices = fileConfig.MaxConcurrentDevices
	}
	reader, err := readprop.NewReader(readerConfig)
	if err != nil {
		log.Fatalf("Failed to create reader: %v", err)
	}
	reader.Start()
	defer reader.Stop()

	if args := flag.Args(); len(args) > 0 && !config.Interactive {
		if err := readOnce(ctx, reader, args); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if config.Interactive {
		ic, err := interactive.New(reader, config.DiscoveryTimeout)
		if err != nil {
			log.Fatalf("Failed to create interactive shell: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	} else {
		log.Println("No references given; waiting for announcements (Ctrl+C to exit)")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
}

// readOnce reads the references named on the command line and prints one
// line per result.
func readOnce(ctx context.Context, reader *readprop.Reader, args []string) error {
	refs := model.NewPropertyReferenceSet()
	for _, arg := range args {
		device, object, ref, err := model.ParseReference(arg)
		if err != nil {
			return fmt.Errorf("invalid reference %q: %w", arg, err)
		}
		refs.Add(device, object, ref)
	}

	requested := refs.Clone()
	results := reader.ReadProperties(ctx, refs, nil, config.DiscoveryTimeout)
	for _, device := range requested.Devices() {
		for _, r := range requested.References(device) {
			res, ok := results.Get(device, r.Object, r.Ref)
			if !ok {
				fmt.Printf("%d:%s %s = <no result>\n", device, r.Object, r.Ref)
				continue
			}
			fmt.Printf("%d:%s %s = %s\n", device, r.Object, r.Ref, res)
		}
	}
	return nil
}

// clientTLSConfig returns nil for plain TCP.
func clientTLSConfig(caFile string, insecure bool) (*transport.TLSConfig, error) {
	if caFile == "" && !insecure {
		return nil, nil
	}
	cfg := &transport.TLSConfig{InsecureSkipVerify: insecure}
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}
		cfg.RootCAs = roots
	}
	return cfg, nil
}

// applyPolicyFile registers the overrides in path with policies.
func applyPolicyFile(path string, policies *cache.Policies) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	overrides, err := cache.LoadOverrides(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return overrides.Apply(policies)
}

func loadFileConfig(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func (e DeviceEntry) remoteDevice() (*discovery.RemoteDevice, error) {
	if e.Instance > model.MaxInstance {
		return nil, fmt.Errorf("device instance %d out of range", e.Instance)
	}
	if e.Address == "" {
		return nil, fmt.Errorf("device %d: address is required", e.Instance)
	}
	dev := &discovery.RemoteDevice{
		ID:           model.DeviceID(e.Instance),
		Address:      e.Address,
		MaxAPDU:      e.MaxAPDU,
		ReadMultiple: true,
		Name:         e.Name,
	}
	if dev.MaxAPDU == 0 {
		dev.MaxAPDU = discovery.DefaultMaxAPDU
	}
	if e.ReadMultiple != nil {
		dev.ReadMultiple = *e.ReadMultiple
	}
	return dev, nil
}

// setupLogging configures the standard logger for console output and returns
// the structured logger handed to the libraries.
func setupLogging(level string) *slog.Logger {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	var lvl slog.Level
	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
		lvl = slog.LevelDebug
	case "warn":
		log.SetFlags(log.Ltime)
		lvl = slog.LevelWarn
	case "error":
		log.SetFlags(log.Ltime)
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
