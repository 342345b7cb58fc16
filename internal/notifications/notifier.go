package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"resort/internal/middleware"
	"resort/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Redis channels.
const (
	BroadcastChannel  = "notifications:broadcast"
	userChannelPrefix = "notifications:user:"
)

// Event types produced here rather than by the service layer.
const (
	EventChange = "postgres_changes"
	EventTyping = "typing"
	EventPong   = "pong"
)

// Event is the frame written to every socket.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ChangePayload describes one row change.
type ChangePayload struct {
	Table      string    `json:"table"`
	Event      string    `json:"event"`
	Record     any       `json:"record"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserChannel derives the Redis channel name for a profile.
func UserChannel(profileID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(profileID), 10)
}

// Notifier publishes events to Redis channels. Without Redis, or when a
// publish fails, events go straight to the local hub.
type Notifier struct {
	rdb *redis.Client
	hub *Hub
	now func() time.Time
}

// NewNotifier creates a notifier. Either argument may be nil.
func NewNotifier(rdb *redis.Client, hub *Hub) *Notifier {
	return &Notifier{rdb: rdb, hub: hub, now: time.Now}
}

// Change publishes a postgres_changes event to every listed profile.
func (n *Notifier) Change(ctx context.Context, table, event string, record any, profileIDs ...uint) {
	if len(profileIDs) == 0 {
		return
	}
	data, err := json.Marshal(Event{Type: EventChange, Payload: ChangePayload{
		Table:      table,
		Event:      event,
		Record:     record,
		OccurredAt: n.now().UTC(),
	}})
	if err != nil {
		n.logError(ctx, err, EventChange)
		return
	}
	observability.ChangeEventsPublished.WithLabelValues(table, event).Inc()
	seen := make(map[uint]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		n.deliver(ctx, UserChannel(id), id, data, EventChange)
	}
}

// UserEvent publishes one event to a single profile.
func (n *Notifier) UserEvent(ctx context.Context, profileID uint, eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		n.logError(ctx, err, eventType)
		return
	}
	n.deliver(ctx, UserChannel(profileID), profileID, data, eventType)
}

// Broadcast publishes one event to every connected profile.
func (n *Notifier) Broadcast(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		n.logError(ctx, err, eventType)
		return
	}
	n.deliver(ctx, BroadcastChannel, 0, data, eventType)
}

func (n *Notifier) deliver(ctx context.Context, channel string, profileID uint, data []byte, eventType string) {
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()
	if n.rdb != nil {
		err := n.rdb.Publish(ctx, channel, data).Err()
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "realtime publish failed, delivering locally",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if n.hub == nil {
		return
	}
	if channel == BroadcastChannel {
		n.hub.SendToAll(data)
		return
	}
	n.hub.SendToProfile(profileID, data)
}

func (n *Notifier) logError(ctx context.Context, err error, eventType string) {
	middleware.Logger.ErrorContext(ctx, "realtime event encode failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// StartPatternSubscriber subscribes to every profile channel and the
// broadcast channel, calling onMessage until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()
	return nil
}
