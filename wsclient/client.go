// Package wsclient provides an event-driven WebSocket client for text
// protocols. The client owns the connection: inbound frames, open, close and
// error notifications are delivered to a Handler in frame order from the read
// goroutine, and outbound frames pass through a bounded queue drained by a
// single writer goroutine in submission order.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotConnected is returned by Send when no connection is open.
	ErrNotConnected = errors.New("not connected")
	// ErrQueueFull is returned by Send when the outbound queue is full.
	ErrQueueFull = errors.New("send queue is full")
	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("client is closed")
	// ErrAlreadyConnected is returned by Connect when a connection is open or
	// being established.
	ErrAlreadyConnected = errors.New("already connected or connecting")
)

// ConnectionState represents the current state of the WebSocket connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Dial in progress
	Connected                           // Handshake complete, loops running
	Closing                             // Flushing the queue before the close frame
	Closed                              // Client has been closed and will not connect again
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Handler receives connection events. All methods except OnError are called
// from the read goroutine, one at a time and in order; OnOpen always precedes
// the first OnMessage. OnError may also be called from the writer goroutine.
type Handler interface {
	// OnOpen is called once the connection is established.
	OnOpen()
	// OnMessage is called with every inbound text frame.
	OnMessage(text string)
	// OnClose is called when a connection that was open ends, whether
	// closed by the peer, by a network error, or by Close.
	OnClose(code int, reason string)
	// OnError is called for read and write failures of an open connection.
	OnError(err error)
}

// Config holds configuration for the WebSocket client.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
	// HandshakeTimeout bounds the opening handshake; 0 means no timeout.
	HandshakeTimeout time.Duration
	// WriteTimeout is the max duration for a single frame write; 0 means no timeout.
	WriteTimeout time.Duration
	// CloseTimeout bounds how long Close waits for queued frames and the close
	// frame to be written before the connection is torn down.
	CloseTimeout time.Duration
	// SendQueueSize is the capacity of the outbound queue.
	SendQueueSize int
	// ReadLimit is the maximum inbound frame size in bytes; 0 means no limit.
	ReadLimit int64
}

// DefaultConfig returns a Config with default values for the given URL.
//
// Returns:
//   - A Config with defaults: no handshake timeout, WriteTimeout 10s,
//     CloseTimeout 5s, SendQueueSize 64, no ReadLimit.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 0,
		WriteTimeout:     10 * time.Second,
		CloseTimeout:     5 * time.Second,
		SendQueueSize:    64,
		ReadLimit:        0,
	}
}

// Client is a single-connection WebSocket client. It is safe for concurrent
// use. A Client connects at most once.
type Client struct {
	config  Config
	handler Handler
	dialer  *websocket.Dialer

	mu     sync.RWMutex
	conn   *websocket.Conn
	state  ConnectionState
	queue  chan string
	group  *errgroup.Group
	cancel context.CancelFunc
	closed bool

	writerDone chan struct{}
	closeOnce  sync.Once
}

// New creates a Client in Disconnected state.
//
// Parameters:
//   - config: Endpoint and tuning (e.g. from DefaultConfig)
//   - handler: Receives connection events; must not be nil
func New(config Config, handler Handler) *Client {
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 1
	}

	return &Client{
		config:  config,
		handler: handler,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		state: Disconnected,
	}
}

// Connect dials the configured URL and, on success, starts the read and write
// loops. It blocks for the duration of the dial only.
//
// Parameters:
//   - ctx: Bounds the dial; cancelling it later does not affect an open connection
//
// Returns:
//   - nil on success; ErrClosed, ErrAlreadyConnected, or the dial error otherwise
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = Connecting
	c.mu.Unlock()

	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		c.mu.Lock()
		if c.state == Connecting {
			c.state = Disconnected
		}
		c.mu.Unlock()

		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %s)", c.config.URL, err, resp.Status)
		}

		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}

	if c.config.ReadLimit > 0 {
		conn.SetReadLimit(c.config.ReadLimit)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(loopCtx)

	c.conn = conn
	c.queue = make(chan string, c.config.SendQueueSize)
	c.writerDone = make(chan struct{})
	c.group = group
	c.cancel = cancel
	c.state = Connected

	queue := c.queue
	writerDone := c.writerDone
	c.mu.Unlock()

	group.Go(func() error {
		defer close(writerDone)
		return c.writeLoop(groupCtx, conn, queue)
	})
	group.Go(func() error {
		return c.readLoop(groupCtx, conn)
	})

	return nil
}

// Send enqueues text for transmission and returns without waiting for the
// write. Queued frames are written in submission order by the writer
// goroutine, and Close flushes them before the close frame.
//
// Parameters:
//   - text: The text frame to send
//
// Returns:
//   - nil once queued
//   - ErrNotConnected if the client is not in Connected state
//   - ErrQueueFull if SendQueueSize frames are already waiting
func (c *Client) Send(text string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != Connected {
		return ErrNotConnected
	}

	select {
	case c.queue <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting frames, waits up to CloseTimeout for the queued
// frames and a normal close frame to be written, then closes the connection
// and waits for both loops to exit. After Close the client is in Closed state.
// Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.close()
	})

	return err
}

func (c *Client) close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	group := c.group
	cancel := c.cancel
	writerDone := c.writerDone
	wasConnected := c.state == Connected
	if wasConnected {
		c.state = Closing
		close(c.queue)
	}
	c.mu.Unlock()

	if conn == nil {
		c.setState(Closed)
		return nil
	}

	if wasConnected {
		select {
		case <-writerDone:
		case <-time.After(c.config.CloseTimeout):
		}
	}

	cancel()
	closeErr := conn.Close()
	_ = group.Wait()

	c.mu.Lock()
	c.conn = nil
	c.state = Closed
	c.mu.Unlock()

	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return closeErr
	}

	return nil
}

// GetState returns the current connection state.
func (c *Client) GetState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the client is in Connected state.
func (c *Client) IsConnected() bool {
	return c.GetState() == Connected
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn, queue <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-queue:
			if !ok {
				c.setWriteDeadline(conn)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !c.isClosed() {
					c.handler.OnError(err)
				}

				return nil
			}

			c.setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				c.handler.OnError(err)
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	c.handler.OnOpen()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := closeDetails(err)
			if !c.isClosed() {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.handler.OnError(err)
				}

				c.mu.Lock()
				if c.state == Connected {
					c.state = Disconnected
				}
				c.mu.Unlock()
			}

			c.handler.OnClose(code, reason)
			return fmt.Errorf("read: %w", err)
		}

		if kind != websocket.TextMessage {
			continue
		}

		c.handler.OnMessage(string(data))
	}
}

func (c *Client) setWriteDeadline(conn *websocket.Conn) {
	if c.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
}

func (c *Client) setState(state ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func closeDetails(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}

	return websocket.CloseAbnormalClosure, err.Error()
}
