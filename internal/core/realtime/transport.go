// Package realtime fans database changes out to connected clients.
//
// A Registry tracks connections and the single room each one follows. Every
// room with members owns one Poller, which reads its feed on a fixed interval
// and hands new rows to the room's members. Transports (WebSocket, SSE) only
// queue frames; they never block a poller.
package realtime

import "github.com/trackitco/support-dashboard/internal/core/domain"

// Transport is the write side of one client connection.
type Transport interface {
	// Send queues event without blocking. It fails with ErrSendBufferFull or
	// ErrTransportClosed when the event cannot be queued.
	Send(event domain.Event) error
	// Close flushes queued events and closes the connection. Safe to call
	// more than once.
	Close() error
	// Kind names the transport in logs and metrics.
	Kind() string
}

// State is where a connection is in its lifecycle.
type State int

const (
	StateConnected State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	default:
		return "closed"
	}
}
