/*
Package proximity contains the live presence registry and the proximity fan-out engine.

Clients stream positions over a persistent connection; on every position update the Hub
recomputes, for each registered connection, the set of other users within the configured
radius and pushes it along with the full roster. The package also routes directed click
notifications and the lightweight "someone joined" presence announcements.
*/
package proximity

// Conn is the transport handle for one connected client.
// Identity is the handle itself: two Conns are the same client only if they are equal values.
// Send must never block and must be a no-op returning false once the channel is closed.
type Conn interface {
	// ID returns a stable identifier used for logging.
	ID() string

	// Send queues one text frame, reporting whether it was accepted.
	Send(frame []byte) bool
}

// closer is implemented by transports that the hub can close on shutdown.
type closer interface {
	Close()
}
