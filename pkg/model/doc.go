// Package model defines the BACnet addressing vocabulary used by the client.
//
// # Addressing
//
// A property value on the network is identified by three coordinates:
//
//	DeviceID > ObjectIdentifier > PropertyReference
//
// A DeviceID is the device instance number. An ObjectIdentifier pairs an
// object type with an instance number (e.g. analog-input,3). A
// PropertyReference names a property and, for array-valued properties, an
// optional array index (NoIndex when the whole value is wanted).
//
// # Request and Result Sets
//
// PropertyReferenceSet groups the references a caller wants to read by device
// and object, preserving insertion order within each device. Batch readers
// remove entries from it as they are satisfied.
//
// PropertyValueSet collects the outcome of a batch read. Each entry is either a
// value or a *PropertyError, keyed by the same coordinates. A value set is safe
// for concurrent use and only ever grows.
//
// # Reference Syntax
//
// ParseReference accepts the compact form used by the command-line tools:
//
//	<device>:<object-type>:<instance>:<property>[<index>]
//
// for example "1001:analog-input:3:present-value" or "1001:device:1001:object-list[2]".
package model
