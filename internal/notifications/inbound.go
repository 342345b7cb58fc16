package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"resort/internal/featureflags"
)

// Inbound frame types accepted from clients.
const (
	FramePing   = "ping"
	FrameTyping = "typing"
)

var pongFrame = []byte(`{"type":"pong"}`)

type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type typingPayload struct {
	To uint `json:"to"`
}

// TypingEvent is pushed to the recipient of a typing frame.
type TypingEvent struct {
	From uint `json:"from"`
}

var errUnsupportedFrame = errors.New("unsupported frame")

// InboundHandler answers pings and relays typing indicators. Anything else is
// ignored. Typing relays stop when the typing_indicators flag is off.
func InboundHandler(ctx context.Context, n *Notifier, flags *featureflags.Manager) func(*Client, []byte) {
	return func(c *Client, raw []byte) {
		if err := handleInbound(ctx, n, flags, c, raw); err != nil {
			c.TrySend([]byte(`{"type":"error","payload":{"reason":"` + err.Error() + `"}}`))
		}
	}
}

func handleInbound(ctx context.Context, n *Notifier, flags *featureflags.Manager, c *Client, raw []byte) error {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return errUnsupportedFrame
	}
	switch frame.Type {
	case FramePing:
		c.TrySend(pongFrame)
		return nil
	case FrameTyping:
		if !flags.On(featureflags.TypingIndicators) {
			return nil
		}
		var p typingPayload
		if len(frame.Payload) == 0 || json.Unmarshal(frame.Payload, &p) != nil || p.To == 0 || p.To == c.ProfileID {
			return errUnsupportedFrame
		}
		n.UserEvent(ctx, p.To, EventTyping, TypingEvent{From: c.ProfileID})
		return nil
	default:
		return errUnsupportedFrame
	}
}
