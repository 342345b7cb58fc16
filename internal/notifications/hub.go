// Package notifications delivers realtime events to connected profiles over
// WebSocket, fanned out across instances through Redis pub/sub.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"resort/internal/middleware"
	"resort/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	maxConnsPerProfile = 12
	maxTotalConns      = 10000

	hubName = "realtime"
)

// Connection cap errors returned by Register.
var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrProfileFull = errors.New("profile connection limit reached")
)

// Hub maps profile IDs to their open clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	presence   *ConnectionManager
	log        *observability.WSLogger
	closed     bool
}

// NewHub creates a hub. Presence is mirrored to rdb when it is non-nil.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: NewConnectionManager(rdb, ConnectionManagerConfig{}),
		log:      observability.NewWSLogger(hubName, middleware.Logger),
	}
}

// Name identifies the hub in metrics and logs.
func (h *Hub) Name() string { return hubName }

// Register binds conn to profileID, enforcing the per-profile and global caps.
func (h *Hub) Register(profileID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed || h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		h.log.LogRejected(context.Background(), profileID, "server_full")
		return nil, ErrServerFull
	}
	m, ok := h.conns[profileID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[profileID] = m
	}
	if len(m) >= maxConnsPerProfile {
		h.mu.Unlock()
		h.log.LogRejected(context.Background(), profileID, "profile_full")
		return nil, ErrProfileFull
	}

	client := NewClient(h, conn, profileID)
	client.OnActivity = func(id uint) { h.presence.Touch(context.Background(), id) }
	m[client] = struct{}{}
	h.totalConns++
	n := len(m)
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.presence.Register(context.Background(), profileID)
	h.log.LogConnect(context.Background(), profileID, n)
	return client, nil
}

// UnregisterClient removes client. It is safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.ProfileID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.ProfileID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.presence.Unregister(context.Background(), client.ProfileID)
		h.log.LogDisconnect(context.Background(), client.ProfileID, "closed")
	}
}

// SendToProfile queues data on every client of profileID.
func (h *Hub) SendToProfile(profileID uint, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.conns[profileID] {
		c.TrySend(data)
		n++
	}
	return n
}

// SendToAll queues data on every connected client.
func (h *Hub) SendToAll(data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
			n++
		}
	}
	return n
}

// ClientCount reports the number of open clients for profileID.
func (h *Hub) ClientCount(profileID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[profileID])
}

// IsOnline reports whether profileID has a live connection on any instance.
func (h *Hub) IsOnline(ctx context.Context, profileID uint) bool {
	return h.presence.IsOnline(ctx, profileID)
}

// OnlineProfileIDs lists profiles with a live connection on any instance.
func (h *Hub) OnlineProfileIDs(ctx context.Context) ([]uint, error) {
	return h.presence.OnlineProfileIDs(ctx)
}

// StartWiring subscribes the hub to the Redis notification channels so events
// published by any instance reach local clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.route)
}

func (h *Hub) route(channel, payload string) {
	if channel == BroadcastChannel {
		h.SendToAll([]byte(payload))
		return
	}
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		middleware.Logger.Warn("unexpected notification channel", slog.String("channel", channel))
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
		return
	}
	h.SendToProfile(uint(id), []byte(payload))
}

// Shutdown stops every client. Each WritePump sends the going-away frame and
// closes its own connection, since only that goroutine may write to it.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.presence.Stop()

	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[uint]map[*Client]struct{})
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.totalConns = 0
	h.mu.Unlock()

	for profileID, clients := range conns {
		for client := range clients {
			client.Close()
			h.log.LogDisconnect(ctx, profileID, "server shutdown")
		}
	}
	return nil
}
