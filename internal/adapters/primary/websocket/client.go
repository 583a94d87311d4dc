package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Auth frames carry a JWT.
	maxMessageSize = 8192

	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultSendBuffer   = 256
)

// FrameHandler receives inbound client frames. *realtime.Registry implements it.
type FrameHandler interface {
	HandleFrame(ctx context.Context, id string, raw []byte) bool
	Unregister(id string)
}

// Options tunes keep-alive and buffering for a client.
type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
	SendBuffer   int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	return o
}

// Client is a middleman between the websocket connection and the registry.
// Outbound events are queued on a buffered channel drained by WritePump.
type Client struct {
	id      string
	conn    *websocket.Conn
	handler FrameHandler
	opts    Options

	// Buffered channel of outbound events.
	send chan domain.Event

	// mu guards closed so that Send never races the channel close.
	mu     sync.RWMutex
	closed bool

	logger *slog.Logger
}

var _ realtime.Transport = (*Client)(nil)

// NewClient creates a client for an upgraded connection.
func NewClient(id string, conn *websocket.Conn, handler FrameHandler, opts Options, logger *slog.Logger) *Client {
	opts = opts.withDefaults()
	return &Client{
		id:      id,
		conn:    conn,
		handler: handler,
		opts:    opts,
		send:    make(chan domain.Event, opts.SendBuffer),
		logger:  logger.With("component", "websocket", "connection_id", id),
	}
}

// ID returns the connection id the client is registered under.
func (c *Client) ID() string { return c.id }

// Kind implements realtime.Transport.
func (c *Client) Kind() string { return "websocket" }

// Send queues an event without blocking.
func (c *Client) Send(event domain.Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return apperrors.ErrTransportClosed
	}
	select {
	case c.send <- event:
		return nil
	default:
		return apperrors.ErrSendBufferFull
	}
}

// Close stops accepting events. WritePump flushes what is queued, sends a
// close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump pumps frames from the websocket connection to the handler.
// This method runs in its own goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.handler.Unregister(c.id)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.extendReadDeadline(); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.extendReadDeadline(); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if err := c.extendReadDeadline(); err != nil {
			c.logger.Error("failed to set read deadline", "error", err)
			return
		}

		if !c.handler.HandleFrame(ctx, c.id, message) {
			return
		}
	}
}

// WritePump pumps events to the websocket connection and keeps it alive with
// an application ping plus a control ping.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The registry closed the channel.
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeEvent(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.writeEvent(domain.PingEvent()); err != nil {
				c.logger.Debug("failed to send ping event", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeEvent writes one event as a text frame. Events that fail validation
// are logged and skipped.
func (c *Client) writeEvent(event domain.Event) error {
	data, err := event.Encode()
	if err != nil {
		c.logger.Warn("dropping invalid event", "type", event.Type, "error", err)
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) extendReadDeadline() error {
	return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
}
