package models

import (
	"time"

	"gorm.io/datatypes"
)

// Comment is a visitor comment on a listing.
type Comment struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ProfileID   uint        `gorm:"not null;index" json:"profile_id"`
	Profile     *Profile    `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	ContentType ContentType `gorm:"type:varchar(20);not null;index:idx_comments_target" json:"content_type"`
	ContentID   uint        `gorm:"not null;index:idx_comments_target" json:"content_id"`
	Body        string      `gorm:"type:text;not null" json:"body"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Favorite marks a listing as saved by a profile.
type Favorite struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ProfileID   uint        `gorm:"not null;uniqueIndex:idx_favorites_unique" json:"profile_id"`
	ContentType ContentType `gorm:"type:varchar(20);not null;uniqueIndex:idx_favorites_unique" json:"content_type"`
	ContentID   uint        `gorm:"not null;uniqueIndex:idx_favorites_unique" json:"content_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// EngagementType classifies an engagement event.
type EngagementType string

const (
	EngagementView     EngagementType = "view"
	EngagementFavorite EngagementType = "favorite"
	EngagementComment  EngagementType = "comment"
	EngagementShare    EngagementType = "share"
	EngagementInquiry  EngagementType = "inquiry"
)

// Valid reports whether t is a known engagement type.
func (t EngagementType) Valid() bool {
	switch t {
	case EngagementView, EngagementFavorite, EngagementComment, EngagementShare, EngagementInquiry:
		return true
	}
	return false
}

// EngagementEvent is a raw interaction used by the analytics aggregations.
type EngagementEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProfileID   *uint          `gorm:"index" json:"profile_id"`
	ContentType ContentType    `gorm:"type:varchar(20);not null;index:idx_engagement_target" json:"content_type"`
	ContentID   uint           `gorm:"not null;index:idx_engagement_target" json:"content_id"`
	EventType   EngagementType `gorm:"type:varchar(20);not null;index" json:"event_type"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}
