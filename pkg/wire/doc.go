// Package wire defines the CBOR messages exchanged between the client and a
// device endpoint.
//
// Every message is a CBOR map with integer keys, sent length-prefixed over a
// stream connection (see package transport). A Request carries an invoke ID,
// a service choice, the target device and a service-specific payload; the
// Response echoes the invoke ID with a status and its own payload.
//
// # Read Property Multiple
//
// The only service on the read path is ServiceReadPropertyMultiple. Its request
// lists, per object, the properties to read, each optionally narrowed to one
// array element. The response answers every requested property, in request
// order, with either a value or a {class, code} error.
//
// # Payloads
//
// Payloads travel as cbor.RawMessage so the envelope can be decoded before
// the service is known, then decoded into the typed payload with Unmarshal.
package wire
