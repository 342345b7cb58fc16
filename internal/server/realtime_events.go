package server

import (
	"context"
	"log/slog"

	"resort/internal/middleware"
	"resort/internal/repository"
	"resort/internal/service"
)

// UnreadCountEvent is pushed after every messages change so badges stay current.
type UnreadCountEvent struct {
	Count int64 `json:"count"`
}

// unreadCountPublisher forwards every event and follows each messages
// change with a fresh unread_count for the affected profiles.
type unreadCountPublisher struct {
	service.Publisher
	messages repository.MessageRepository
}

func newUnreadCountPublisher(next service.Publisher, messages repository.MessageRepository) *unreadCountPublisher {
	return &unreadCountPublisher{Publisher: next, messages: messages}
}

func (p *unreadCountPublisher) Change(ctx context.Context, table, event string, record any, userIDs ...uint) {
	p.Publisher.Change(ctx, table, event, record, userIDs...)
	if table != service.TableMessages {
		return
	}
	seen := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		n, err := p.messages.UnreadCount(ctx, id)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "unread count refresh failed",
				slog.Uint64("profile_id", uint64(id)),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.UserEvent(ctx, id, service.EventUnreadCount, UnreadCountEvent{Count: n})
	}
}
