// Package transport defines the outbound pub/sub channel telemetry is written to.
package transport

import "errors"

var (
	ErrClosed  = errors.New("transport closed")
	ErrDropped = errors.New("message dropped")
	// ErrNotConnected is returned by Send while there is no link to a peer.
	ErrNotConnected = errors.New("transport not connected")
)

// Publisher sends one message per call without blocking. Send returns the
// number of bytes accepted; anything other than len(data) means the message
// was not fully handed off.
type Publisher interface {
	Send(data []byte) (int, error)
	Close() error
}

// Stats counts messages handed to a transport.
type Stats struct {
	Sent    uint64
	Dropped uint64
}
