package notifications

import (
	"context"
	"sync"
	"time"

	"resort/internal/observability"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are tiny control messages.
	maxMessageSize = 4096

	sendBuffer = 256

	inboundRate  = 5
	inboundBurst = 10
)

var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is the part of a hub a client reports back to.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client sits between one websocket connection and the hub.
type Client struct {
	Hub  WSHub
	Conn *websocket.Conn

	// Send is the buffered outbound queue drained by WritePump.
	Send chan []byte

	ProfileID uint

	// IncomingHandler receives every inbound frame that passes the limiter.
	IncomingHandler func(*Client, []byte)
	OnActivity      func(profileID uint)

	limiter   *rate.Limiter
	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient creates a client for profileID.
func NewClient(hub WSHub, conn *websocket.Conn, profileID uint) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		ProfileID: profileID,
		Send:      make(chan []byte, sendBuffer),
		limiter:   rate.NewLimiter(inboundRate, inboundBurst),
		closed:    make(chan struct{}),
	}
}

// Allow consumes one inbound token.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Close()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.OnActivity != nil {
			c.OnActivity(c.ProfileID)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.NewWSLogger(c.Hub.Name(), nil).LogError(ctx, c.ProfileID, err, "read")
			}
			return
		}
		if !c.Allow() {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "rate_limited").Inc()
			continue
		}
		if c.OnActivity != nil {
			c.OnActivity(c.ProfileID)
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close stops WritePump. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// TrySend queues message without blocking. A full buffer drops the frame and
// tries to tell the client so it can re-fetch.
func (c *Client) TrySend(message []byte) {
	select {
	case <-c.closed:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return
	default:
	}

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		select {
		case c.Send <- droppedNotice:
		default:
		}
	}
}
