// Package interaction implements confirmed read requests on top of
// pkg/transport connections.
//
// The interaction model has two services:
//
//   - ReadProperty: read one property, optionally one array element
//   - ReadPropertyMultiple: read a list of properties from a list of objects
//
// # Server Usage
//
// The Server answers requests from a PropertyStore:
//
//	store, err := interaction.LoadMemoryStore("devices.yaml")
//	server := interaction.NewServer(store)
//
//	// Answer frames received by a transport.Server
//	config.OnMessage = server.ServeMessage
//
// # Client Usage
//
// The Client matches responses to requests by invoke ID. The caller feeds
// received frames to HandleFrame:
//
//	client := interaction.NewClient(conn)
//	go func() {
//	    for {
//	        data, err := conn.Receive(0)
//	        if err != nil {
//	            return
//	        }
//	        _ = client.HandleFrame(data)
//	    }
//	}()
//
//	resp, err := client.ReadMultiple(ctx, deviceID, refs)
//
// # Reader Transport
//
// Transport implements readprop.Transport. It keeps one connection per device
// address and reports unreachable or silent devices as
// readprop.ErrTransportTimeout, which makes the reader rediscover them.
package interaction
