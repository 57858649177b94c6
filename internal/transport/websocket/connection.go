package websocket

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/surgisim/fusion/internal/transport"
)

const (
	defaultBuffer = 10_000
	defaultRetry  = time.Second
	maxBackoff    = 30 * time.Second
	writeWait     = 10 * time.Second
)

// link is one established socket. Its read and write loops stop when stop
// is closed, so a socket never has more than one writer.
type link struct {
	conn *ws.Conn
	stop chan struct{}
}

// connection keeps at most one live link to the relay and redials in the
// background whenever there is none.
type connection struct {
	mu      sync.Mutex
	cur     *link
	dialing bool
	closed  bool

	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	retry  time.Duration

	wsURL string

	sent    atomic.Uint64
	dropped atomic.Uint64

	logger *slog.Logger
}

func newConnection(buffer int, retry time.Duration, logger *slog.Logger) *connection {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if retry <= 0 {
		retry = defaultRetry
	}
	return &connection{
		sendCh: make(chan []byte, buffer),
		done:   make(chan struct{}),
		retry:  retry,
		logger: logger,
	}
}

// dial makes the first connection attempt. When it fails the connection
// keeps redialing in the background and the error is only informative,
// except for an unusable URL, which is returned without retrying.
func (c *connection) dial(rawURL, secret, topic string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	q := u.Query()
	q.Set("topic", topic)
	if secret != "" {
		q.Set("secret", secret)
	}
	u.RawQuery = q.Encode()
	c.wsURL = u.String()

	if c.isClosed() {
		return ErrClientClosed
	}

	conn, err := c.dialOnce()
	if err != nil {
		c.startRedial()
		return err
	}
	if !c.attach(conn) {
		return ErrClientClosed
	}
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live link and starts its loops.
func (c *connection) attach(conn *ws.Conn) bool {
	c.mu.Lock()
	c.dialing = false
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	l := &link{conn: conn, stop: make(chan struct{})}
	c.cur = l
	c.mu.Unlock()

	go c.writeLoop(l)
	go c.readLoop(l)
	return true
}

// drop tears l down and starts redialing. Only the first caller for a link
// has any effect.
func (c *connection) drop(l *link) {
	c.mu.Lock()
	if c.cur != l {
		c.mu.Unlock()
		return
	}
	c.cur = nil
	close(l.stop)
	c.mu.Unlock()

	_ = l.conn.Close()
	c.startRedial()
}

func (c *connection) startRedial() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.dialing || c.cur != nil {
		return
	}
	c.dialing = true
	go c.redial()
}

// redial retries with exponential backoff until a link is up or the
// connection is closed.
func (c *connection) redial() {
	backoff := c.retry
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Connecting to WebSocket", "attempt", attempt, "backoff", backoff)
		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("WebSocket dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		if c.attach(conn) {
			c.logger.Info("WebSocket connected", "attempt", attempt)
		}
		return
	}
}

// writeLoop drains sendCh onto l until l is dropped or the connection closes.
func (c *connection) writeLoop(l *link) {
	for {
		select {
		case <-c.done:
			return
		case <-l.stop:
			return
		case data := <-c.sendCh:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.dropped.Add(1)
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.drop(l)
				return
			}
			if err := l.conn.WriteMessage(ws.BinaryMessage, data); err != nil {
				c.dropped.Add(1)
				c.logger.Warn("WebSocket write error", "error", err)
				c.drop(l)
				return
			}
			c.sent.Add(1)
		}
	}
}

// readLoop discards anything the server sends. It exists so close and ping
// control frames are processed and a dead peer is noticed.
func (c *connection) readLoop(l *link) {
	for {
		if _, _, err := l.conn.ReadMessage(); err != nil {
			select {
			case <-c.done:
				return
			case <-l.stop:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			c.drop(l)
			return
		}
	}
}

// send pushes data to the write loop without blocking.
func (c *connection) send(data []byte) error {
	if !c.connected() {
		c.dropped.Add(1)
		return transport.ErrNotConnected
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		c.dropped.Add(1)
		return transport.ErrDropped
	}
}

func (c *connection) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	l := c.cur
	c.cur = nil
	if l != nil {
		close(l.stop)
	}
	c.mu.Unlock()

	if l == nil {
		return nil
	}
	_ = l.conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return l.conn.Close()
}
