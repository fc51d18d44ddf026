// Package cache implements the client-side cache of values read from remote
// devices and the policies that govern how long they stay valid.
//
// # Policies
//
// A Policy decides, at insertion time, the expiry state of a cached entity and,
// on every access, whether that state has expired. Three variants exist:
// NeverCache (every access misses), NeverExpire, and TimedExpiry.
//
// # Policy Lookup
//
// Policies are registered in three independent tables keyed by DeviceKey,
// ObjectKey and PropertyKey. Every key axis is a Scope that is either a
// specific value or a wildcard. A lookup tries the scope combinations in a
// fixed order, most specific first, and the first registered policy wins:
//
//	property: (d,o,p) (d,o,*) (d,*,p) (d,*,*) (*,o,p) (*,o,*) (*,*,p) (*,*,*)
//	object:   (d,o) (d,*) (*,o) (*,*)
//	device:   (d) (*)
//
// A lookup that matches nothing reports "no policy". Callers decide the
// default; the *OrDefault helpers use NeverCache.
//
// # Remote Entity Cache
//
// RemoteEntityCache is a keyed store guarded by a single mutex. There is no
// background eviction: expired entries are removed when an access finds them.
package cache
