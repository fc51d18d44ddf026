// Package transport carries confirmed BACnet service requests over a stream
// connection.
//
// The transport layer handles:
//   - TCP connections, optionally secured with TLS 1.3
//   - Length-prefixed message framing
//   - Per-connection identifiers for log correlation
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR Requests / Responses    │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│     TLS 1.3 (optional)         │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Frames carry a 4-byte big-endian payload length followed by the payload.
// Empty frames are invalid. Frames larger than the configured maximum
// (64 KB by default) are rejected on both send and receive.
package transport
