// Package capture records BACnet protocol traffic as a machine-readable
// event trace.
//
// Capture is separate from operational logging (slog): it keeps every frame
// a client or simulated device exchanged, decoded where possible, so a
// session can be replayed and analyzed after the fact.
//
// # Basic Usage
//
// Components accept a Logger:
//
//	// For development: log to console via slog
//	config.ProtocolLogger = capture.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to a capture file
//	config.ProtocolLogger, _ = capture.NewFileLogger("/tmp/client.bcap")
//
//	// Both
//	config.ProtocolLogger = capture.NewMultiLogger(adapter, fileLogger)
//
// # Event Types
//
// Events are captured at two layers:
//   - Transport: raw frame bytes (FrameEvent) and connection state changes
//   - Wire: decoded requests and responses (MessageEvent)
//
// Frames that cannot be decoded produce an error event at the wire layer.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events. The bacnet-capture
// tool views and summarizes them.
package capture
