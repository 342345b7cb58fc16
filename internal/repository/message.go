package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"resort/internal/models"

	"gorm.io/gorm"
)

// Thread page bounds.
const (
	DefaultThreadLimit = 200
	MaxThreadLimit     = 500
)

// MessageRepository persists direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	// Thread returns messages between a and b in ascending creation order.
	// offset skips that many of the newest messages.
	Thread(ctx context.Context, a, b uint, limit, offset int) ([]models.Message, error)
	// MarkRead flags every unread message from sender to recipient as read.
	MarkRead(ctx context.Context, recipient, sender uint, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, recipient uint) (int64, error)
	UnreadBySender(ctx context.Context, recipient uint) (map[uint]int64, error)
	// LatestPerCounterpart returns the newest message exchanged with each counterpart.
	LatestPerCounterpart(ctx context.Context, profileID uint) ([]models.Message, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a MessageRepository backed by db.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Sender", "Recipient").Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

func (r *messageRepository) Thread(ctx context.Context, a, b uint, limit, offset int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultThreadLimit
	}
	if limit > MaxThreadLimit {
		limit = MaxThreadLimit
	}
	if offset < 0 {
		offset = 0
	}

	var msgs []models.Message
	if err := readDB(r.db).WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, recipient, sender uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", recipient, sender, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, recipient uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", recipient, false).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *messageRepository) UnreadBySender(ctx context.Context, recipient uint) (map[uint]int64, error) {
	var rows []struct {
		SenderID uint
		Unread   int64
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("recipient_id = ? AND is_read = ?", recipient, false).
		Group("sender_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.SenderID] = row.Unread
	}
	return out, nil
}

func (r *messageRepository) LatestPerCounterpart(ctx context.Context, profileID uint) ([]models.Message, error) {
	db := readDB(r.db).WithContext(ctx)
	latest := db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("sender_id = ? OR recipient_id = ?", profileID, profileID).
		Group(fmt.Sprintf("CASE WHEN sender_id = %d THEN recipient_id ELSE sender_id END", profileID))

	var msgs []models.Message
	if err := db.Where("id IN (?)", latest).Order("created_at DESC, id DESC").Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Message{}).
		Where("created_at >= ?", since).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
