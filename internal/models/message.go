package models

import "time"

// Message is a direct message between two profiles.
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"not null;index:idx_messages_pair;index:idx_messages_unread,priority:2" json:"sender_id"`
	Sender      *Profile   `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uint       `gorm:"not null;index:idx_messages_pair;index:idx_messages_unread,priority:1" json:"recipient_id"`
	Recipient   *Profile   `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Content     string     `gorm:"type:text" json:"content"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsRead      bool       `gorm:"not null;default:false;index:idx_messages_unread,priority:3" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Contact is one entry of a user's inbox: a counterpart with the latest
// message exchanged and how many of their messages are still unread.
type Contact struct {
	Profile     ProfileSummary `json:"profile"`
	LastMessage *Message       `json:"last_message,omitempty"`
	UnreadCount int64          `json:"unread_count"`
	Connected   bool           `json:"connected"`
}
