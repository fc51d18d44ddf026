// Package readprop reads batches of remote BACnet properties through a
// policy-driven cache.
//
// Reader.ReadProperties runs in two phases. Phase 1 runs on the calling
// goroutine: every requested reference that has an unexpired cached value is
// answered from the cache and removed from the request. Phase 2 starts one
// task per device that still has pending references. A task resolves the
// device handle (cached, or discovered through a WhoIs), sends one batch read
// through the Transport, caches the whole-value successes and records every
// per-property result. ReadProperties joins all tasks before it returns.
//
// Failures never escape a batch:
//
//   - a read timeout on a cached handle evicts the handle and retries once
//     after fresh discovery
//   - a read or discovery timeout with nothing to fall back on records a
//     communication/timeout error for every pending reference of the device
//   - any other failure is logged and the device's references are left out
//     of the result
//
// Progress is reported as (completed, total) where total is the number of
// references at call start and every reference is counted exactly once.
package readprop
