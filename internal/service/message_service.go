package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"resort/internal/models"
	"resort/internal/observability"
	"resort/internal/repository"
	"resort/internal/validation"
)

// MessageService implements direct messaging between profiles.
type MessageService struct {
	messages    repository.MessageRepository
	profiles    repository.ProfileRepository
	connections repository.ConnectionRepository
	events      Publisher
	now         func() time.Time
}

// NewMessageService returns a new MessageService.
func NewMessageService(
	messages repository.MessageRepository,
	profiles repository.ProfileRepository,
	connections repository.ConnectionRepository,
	events Publisher,
) *MessageService {
	return &MessageService{
		messages:    messages,
		profiles:    profiles,
		connections: connections,
		events:      publisherOrNop(events),
		now:         time.Now,
	}
}

// ReadReceipt is the change record published when a thread is marked read.
type ReadReceipt struct {
	RecipientID uint      `json:"recipient_id"`
	SenderID    uint      `json:"sender_id"`
	Count       int64     `json:"count"`
	ReadAt      time.Time `json:"read_at"`
}

// Thread returns the conversation between userID and contactID, oldest first.
func (s *MessageService) Thread(ctx context.Context, userID, contactID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.profiles.GetByID(ctx, contactID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.Thread(ctx, userID, contactID, limit, offset)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Send stores one unread message from senderID to recipientID.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uint, content, imageURL string) (*models.Message, error) {
	if senderID == recipientID {
		return nil, models.NewValidationError("You cannot message yourself")
	}
	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)
	if content == "" && imageURL == "" {
		return nil, models.NewValidationError("Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > validation.MaxMessageLen {
		return nil, models.NewValidationError("Message too long (max 4000 characters)")
	}
	if imageURL != "" && !validation.IsHTTPURL(imageURL) {
		return nil, models.NewValidationError("Image must be an http(s) URL")
	}

	recipient, err := s.profiles.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient.IsBanned {
		return nil, models.NewNotFoundError("Profile", recipientID)
	}

	msg := &models.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		ImageURL:    imageURL,
		IsRead:      false,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()
	s.events.Change(ctx, TableMessages, ChangeInsert, msg, senderID, recipientID)
	return msg, nil
}

// MarkRead flags every unread message from contactID to userID as read and
// returns how many rows changed.
func (s *MessageService) MarkRead(ctx context.Context, userID, contactID uint) (int64, error) {
	at := s.now()
	n, err := s.messages.MarkRead(ctx, userID, contactID, at)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		receipt := ReadReceipt{RecipientID: userID, SenderID: contactID, Count: n, ReadAt: at}
		s.events.Change(ctx, TableMessages, ChangeUpdate, receipt, userID, contactID)
	}
	return n, nil
}

// UnreadCount counts unread messages addressed to userID.
func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

// Contacts merges accepted connections with message counterparts, most
// recent activity first.
func (s *MessageService) Contacts(ctx context.Context, userID uint) ([]models.Contact, error) {
	accepted, err := s.connections.Accepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestPerCounterpart(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadBySender(ctx, userID)
	if err != nil {
		return nil, err
	}

	type entry struct {
		last      *models.Message
		activity  time.Time
		connected bool
	}
	entries := map[uint]*entry{}
	ids := []uint{}
	get := func(id uint) *entry {
		if e, ok := entries[id]; ok {
			return e
		}
		e := &entry{}
		entries[id] = e
		ids = append(ids, id)
		return e
	}

	for i := range accepted {
		c := &accepted[i]
		e := get(c.OtherParty(userID))
		e.connected = true
		if c.UpdatedAt.After(e.activity) {
			e.activity = c.UpdatedAt
		}
	}
	for i := range latest {
		m := &latest[i]
		other := m.SenderID
		if other == userID {
			other = m.RecipientID
		}
		e := get(other)
		e.last = m
		if m.CreatedAt.After(e.activity) {
			e.activity = m.CreatedAt
		}
	}

	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	contacts := make([]models.Contact, 0, len(profiles))
	activity := make(map[uint]time.Time, len(profiles))
	for _, p := range profiles {
		if p.IsBanned {
			continue
		}
		e := entries[p.ID]
		contacts = append(contacts, models.Contact{
			Profile:     p.Summary(),
			LastMessage: e.last,
			UnreadCount: unread[p.ID],
			Connected:   e.connected,
		})
		activity[p.ID] = e.activity
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		ai, aj := activity[contacts[i].Profile.ID], activity[contacts[j].Profile.ID]
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return contacts[i].Profile.ID < contacts[j].Profile.ID
	})
	return contacts, nil
}
