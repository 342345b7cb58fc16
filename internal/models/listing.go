package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentType names the kind of listing a comment, favorite or engagement event points at.
type ContentType string

const (
	ContentAccommodation ContentType = "accommodation"
	ContentExperience    ContentType = "experience"
)

// ParseContentType accepts singular or plural route forms ("experience", "experiences").
func ParseContentType(raw string) (ContentType, bool) {
	switch raw {
	case "accommodation", "accommodations":
		return ContentAccommodation, true
	case "experience", "experiences":
		return ContentExperience, true
	}
	return "", false
}

// Accommodation is a host-owned place to stay.
type Accommodation struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	HostID        uint                        `gorm:"not null;index" json:"host_id"`
	Host          *Profile                    `gorm:"foreignKey:HostID" json:"host,omitempty"`
	Title         string                      `gorm:"size:140;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Location      string                      `gorm:"size:160;not null;index" json:"location"`
	PropertyType  string                      `gorm:"size:40" json:"property_type"`
	PricePerNight float64                     `gorm:"not null" json:"price_per_night"`
	MaxGuests     int                         `gorm:"not null;default:1" json:"max_guests"`
	Bedrooms      int                         `json:"bedrooms"`
	Bathrooms     int                         `json:"bathrooms"`
	Amenities     datatypes.JSONSlice[string] `json:"amenities"`
	ImageURLs     datatypes.JSONSlice[string] `gorm:"column:image_urls" json:"image_urls"`
	IsPublished   bool                        `gorm:"not null;default:false;index" json:"is_published"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// Experience is a host-led activity.
type Experience struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	HostID          uint                        `gorm:"not null;index" json:"host_id"`
	Host            *Profile                    `gorm:"foreignKey:HostID" json:"host,omitempty"`
	Title           string                      `gorm:"size:140;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	Location        string                      `gorm:"size:160;not null;index" json:"location"`
	Category        string                      `gorm:"size:40;index" json:"category"`
	Price           float64                     `gorm:"not null" json:"price"`
	DurationHours   float64                     `gorm:"not null" json:"duration_hours"`
	MaxParticipants int                         `gorm:"not null;default:1" json:"max_participants"`
	Included        datatypes.JSONSlice[string] `json:"included"`
	ImageURLs       datatypes.JSONSlice[string] `gorm:"column:image_urls" json:"image_urls"`
	IsPublished     bool                        `gorm:"not null;default:false;index" json:"is_published"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// ListingRef identifies any listing by kind and id.
type ListingRef struct {
	Type ContentType `json:"content_type"`
	ID   uint        `json:"content_id"`
}
