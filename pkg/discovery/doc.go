// Package discovery locates remote BACnet devices.
//
// A client asks "who is device N?" with a WhoIs broadcast; devices answer
// with an Announcement (an I-Am) carrying their RemoteDevice handle: network
// address plus read capabilities. A Directory sends the broadcasts and fans
// announcements out to registered listeners.
//
// # Futures
//
// Finder.Find registers a transient listener for one device and broadcasts a
// WhoIs scoped to exactly that device. The returned Future moves from Pending
// to exactly one of Resolved, Cancelled or TimedOut. Whichever transition
// happens first wins; the listener is removed exactly once on that transition.
// FindAsync runs the same state machine and reports the outcome through
// callbacks.
//
// # mDNS
//
// MDNSDirectory maps the broadcast onto DNS-SD browsing of the _bacnet._tcp
// service type. Devices (or the simulator) publish themselves with
// MDNSAdvertiser. TXT records carry the handle:
//
//	DI   device instance (required)
//	MA   max APDU length accepted
//	SG   segmentation supported (0 both, 1 transmit, 2 receive, 3 none)
//	VI   vendor identifier
//	RPM  "1" if ReadPropertyMultiple is supported
//	DN   device name
package discovery
