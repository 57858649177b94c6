// Package websocket publishes telemetry frames as binary WebSocket messages
// to a relay that fans them out to subscribers of the topic.
package websocket

import (
	"errors"
	"log/slog"
	"time"

	"github.com/surgisim/fusion/internal/transport"
)

var (
	// ErrInvalidURL is returned by Dial for a URL that can never connect.
	ErrInvalidURL = errors.New("websocket: invalid URL")
	// ErrClientClosed is returned by Dial when the client was closed first.
	ErrClientClosed = errors.New("websocket: client closed before connect")
)

// Config holds WebSocket transport configuration.
type Config struct {
	URL    string
	Secret string
	Topic  string
	// Buffer is the number of frames queued for the write loop. Zero means
	// the package default.
	Buffer int
	// Retry is the first redial delay; it doubles per failed attempt.
	Retry time.Duration
}

// Client implements transport.Publisher over a single WebSocket.
type Client struct {
	conn *connection
	cfg  Config
}

var _ transport.Publisher = (*Client)(nil)

// New creates an unconnected client. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn: newConnection(cfg.Buffer, cfg.Retry, logger.With("component", "websocket", "topic", cfg.Topic)),
		cfg:  cfg,
	}
}

// Dial connects to the relay. If the relay is unreachable the error is
// returned and the client keeps redialing in the background; frames sent
// meanwhile fail with transport.ErrNotConnected.
func (c *Client) Dial() error {
	return c.conn.dial(c.cfg.URL, c.cfg.Secret, c.cfg.Topic)
}

// Connected reports whether a link to the relay is up.
func (c *Client) Connected() bool {
	return c.conn.connected()
}

// Send queues data for the write loop without blocking. The full length is
// reported when the frame was queued.
func (c *Client) Send(data []byte) (int, error) {
	if c.conn.isClosed() {
		return 0, transport.ErrClosed
	}
	if err := c.conn.send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close disconnects from the relay.
func (c *Client) Close() error {
	return c.conn.close()
}

// Stats returns written and dropped frame counts.
func (c *Client) Stats() transport.Stats {
	return transport.Stats{Sent: c.conn.sent.Load(), Dropped: c.conn.dropped.Load()}
}
