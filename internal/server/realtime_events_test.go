package server

import (
	"context"
	"sync"
	"testing"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/service"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userEvent struct {
	userID  uint
	kind    string
	payload any
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []string
	events  []userEvent
}

func (p *recordingPublisher) Change(_ context.Context, table, event string, _ any, _ ...uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, table+":"+event)
}

func (p *recordingPublisher) UserEvent(_ context.Context, userID uint, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, userEvent{userID: userID, kind: eventType, payload: payload})
}

func (p *recordingPublisher) Broadcast(context.Context, string, any) {}

func TestUnreadCountPublisher(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	ana := testutil.CreateProfile(t, db, "ana", models.RoleGuest)
	ben := testutil.CreateProfile(t, db, "ben", models.RoleGuest)
	messages := repository.NewMessageRepository(db)
	for _, body := range []string{"one", "two"} {
		require.NoError(t, messages.Create(ctx, &models.Message{SenderID: ana.ID, RecipientID: ben.ID, Content: body}))
	}

	rec := &recordingPublisher{}
	pub := newUnreadCountPublisher(rec, messages)

	t.Run("messages change refreshes each party once", func(t *testing.T) {
		rec.events = nil
		pub.Change(ctx, service.TableMessages, service.ChangeInsert, nil, ana.ID, ben.ID, ben.ID, 0)

		assert.Equal(t, []string{service.TableMessages + ":" + service.ChangeInsert}, rec.changes)
		require.Len(t, rec.events, 2)
		byUser := map[uint]UnreadCountEvent{}
		for _, e := range rec.events {
			assert.Equal(t, service.EventUnreadCount, e.kind)
			byUser[e.userID] = e.payload.(UnreadCountEvent)
		}
		assert.Equal(t, int64(0), byUser[ana.ID].Count)
		assert.Equal(t, int64(2), byUser[ben.ID].Count)
	})

	t.Run("other tables pass through", func(t *testing.T) {
		rec.events = nil
		pub.Change(ctx, service.TableConnections, service.ChangeUpdate, nil, ana.ID, ben.ID)
		assert.Empty(t, rec.events)
		assert.Len(t, rec.changes, 2)
	})

	t.Run("user events are forwarded untouched", func(t *testing.T) {
		rec.events = nil
		pub.UserEvent(ctx, ben.ID, "custom", map[string]int{"n": 1})
		require.Len(t, rec.events, 1)
		assert.Equal(t, "custom", rec.events[0].kind)
	})
}
