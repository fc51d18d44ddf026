// Command bacnet-sim serves a YAML object database as one or more simulated
// BACnet devices.
//
// Usage:
//
//	bacnet-sim [flags]
//
// Flags:
//
//	-db string          Object database file (required)
//	-addr string        Listen address (default ":47808")
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-advertise          Advertise the devices over DNS-SD
//	-simulate duration  Drift analog present values at this interval (0 disables)
//	-capture string     Write a protocol capture to this file
//	-tls-cert string    TLS certificate (PEM); enables TLS with -tls-key
//	-tls-key string     TLS private key (PEM)
//
// Examples:
//
//	# Serve two devices and make them discoverable
//	bacnet-sim -db devices.yaml -advertise
//
//	# Serve on a fixed port with moving analog values
//	bacnet-sim -db devices.yaml -addr 127.0.0.1:47900 -simulate 2s -log-level debug
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"log/slog"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bacstack/bacnet-go/pkg/capture"
	"github.com/bacstack/bacnet-go/pkg/discovery"
	"github.com/bacstack/bacnet-go/pkg/interaction"
	"github.com/bacstack/bacnet-go/pkg/model"
	"github.com/bacstack/bacnet-go/pkg/transport"
)

// Config holds the simulator configuration.
type Config struct {
	Database  string
	Address   string
	LogLevel  string
	Advertise bool
	Simulate  time.Duration
	Capture   string
	TLSCert   string
	TLSKey    string
}

var config Config

func init() {
	flag.StringVar(&config.Database, "db", "", "Object database file (required)")
	flag.StringVar(&config.Address, "addr", ":47808", "Listen address")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Advertise, "advertise", false, "Advertise the devices over DNS-SD")
	flag.StringVar(&config.Capture, "capture", "", "Write a protocol capture to this file")
	flag.StringVar(&config.TLSCert, "tls-cert", "", "TLS certificate (PEM); enables TLS with -tls-key")
	flag.StringVar(&config.TLSKey, "tls-key", "", "TLS private key (PEM)")
	flag.DurationVar(&config.Simulate, "simulate", 0, "Drift analog present values at this interval (0 disables)")
}

func main() {
	flag.Parse()

	logger := setupLogging(config.LogLevel)

	if config.Database == "" {
		log.Fatal("-db is required")
	}

	log.Println("BACnet Device Simulator")
	log.Println("=======================")

	store, err := interaction.LoadMemoryStore(config.Database)
	if err != nil {
		log.Fatalf("Failed to load database: %v", err)
	}
	devices := store.Devices()
	for _, dc := range devices {
		log.Printf("Device %d (%s): %d objects", dc.Instance, dc.Name, len(store.Objects(model.DeviceID(dc.Instance))))
	}

	server := interaction.NewServer(store)
	server.SetLogger(logger)
	if config.Capture != "" {
		fileLogger, err := capture.NewFileLogger(config.Capture)
		if err != nil {
			log.Fatalf("Failed to open capture file: %v", err)
		}
		defer fileLogger.Close()
		server.SetProtocolLogger(fileLogger)
		log.Printf("Capturing protocol traffic to %s", config.Capture)
	}

	var tlsConfig *transport.TLSConfig
	if config.TLSCert != "" || config.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(config.TLSCert, config.TLSKey)
		if err != nil {
			log.Fatalf("Failed to load TLS certificate: %v", err)
		}
		tlsConfig = &transport.TLSConfig{Certificate: cert}
		log.Println("TLS enabled")
	}

	listener, err := transport.NewServer(transport.ServerConfig{
		Address:   config.Address,
		TLSConfig: tlsConfig,
		Logger:    logger,
		OnMessage: server.ServeMessage,
		OnConnect: func(conn *transport.ServerConn) {
			log.Printf("Client connected: %s", conn.RemoteAddr())
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
		},
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Listening on %s", listener.Addr())

	var advertiser *discovery.MDNSAdvertiser
	if config.Advertise {
		advertiser = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{})
		port := listener.Addr().(*net.TCPAddr).Port
		for _, dc := range devices {
			dev := remoteDevice(dc)
			if err := advertiser.Advertise(dev, port); err != nil {
				log.Printf("Failed to advertise device %d: %v", dc.Instance, err)
				continue
			}
			log.Printf("Advertising %s", discovery.InstanceName(dev))
		}
	}

	if config.Simulate > 0 {
		go runSimulation(ctx, store, config.Simulate)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %v", sig)
	log.Println("Shutting down...")

	cancel()
	if advertiser != nil {
		advertiser.StopAll()
	}
	if err := listener.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
	log.Printf("Served %d requests", server.RequestCount())
}

// remoteDevice is the handle advertised for a database device.
func remoteDevice(dc interaction.DeviceConfig) *discovery.RemoteDevice {
	dev := &discovery.RemoteDevice{
		ID:           model.DeviceID(dc.Instance),
		MaxAPDU:      discovery.DefaultMaxAPDU,
		VendorID:     dc.VendorID,
		ReadMultiple: true,
		Name:         dc.Name,
	}
	if dc.ReadMultiple != nil {
		dev.ReadMultiple = *dc.ReadMultiple
	}
	return dev
}

func runSimulation(ctx context.Context, store *interaction.MemoryStore, interval time.Duration) {
	log.Println("Simulation mode enabled")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := driftAnalogValues(store, rnd)
			log.Printf("[SIM] Updated %d present values", n)
		}
	}
}

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
