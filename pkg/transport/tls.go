package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// Transport constants.
const (
	// ALPNProtocol identifies the request/response protocol during TLS
	// negotiation.
	ALPNProtocol = "bacnet-rp/1"

	// DefaultPort is the default listen port (the BACnet/IP port number).
	DefaultPort = 47808
)

// TLSConfig holds the certificates for a TLS-secured connection.
type TLSConfig struct {
	// Certificate is presented to the peer. Required for servers; optional
	// for clients unless the server demands one.
	Certificate tls.Certificate

	// RootCAs verifies server certificates. If nil, the host pool is used.
	RootCAs *x509.CertPool

	// ClientCAs verifies client certificates. If set, servers require
	// clients to present a certificate signed by one of these.
	ClientCAs *x509.CertPool

	// ServerName is the expected server name for client connections.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// Only for testing.
	InsecureSkipVerify bool
}

// NewServerTLSConfig creates a TLS configuration for a listening device.
func NewServerTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if len(cfg.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("server certificate is required")
	}

	tlsConfig := baseTLSConfig()
	tlsConfig.Certificates = []tls.Certificate{cfg.Certificate}
	tlsConfig.ClientAuth = tls.NoClientCert
	if cfg.ClientCAs != nil {
		tlsConfig.ClientCAs = cfg.ClientCAs
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsConfig, nil
}

// NewClientTLSConfig creates a TLS configuration for a reading client.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}

	tlsConfig := baseTLSConfig()
	if len(cfg.Certificate.Certificate) > 0 {
		tlsConfig.Certificates = []tls.Certificate{cfg.Certificate}
	}
	tlsConfig.RootCAs = cfg.RootCAs
	tlsConfig.ServerName = cfg.ServerName
	tlsConfig.InsecureSkipVerify = cfg.InsecureSkipVerify
	return tlsConfig, nil
}

func baseTLSConfig() *tls.Config {
	return &tls.Config{
		// TLS 1.3 only - no fallback
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,
		NextProtos: []string{ALPNProtocol},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		SessionTicketsDisabled: true,
	}
}

// VerifyConnection checks the negotiated TLS version and ALPN protocol.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS version %x is not TLS 1.3 (0x0304)", state.Version)
	}
	if state.NegotiatedProtocol != ALPNProtocol {
		return fmt.Errorf("ALPN protocol %q is not %q", state.NegotiatedProtocol, ALPNProtocol)
	}
	return nil
}
