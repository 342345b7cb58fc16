package models

import "time"

// HostApplicationStatus defines lifecycle states for host applications.
type HostApplicationStatus string

const (
	HostApplicationPending  HostApplicationStatus = "pending"
	HostApplicationApproved HostApplicationStatus = "approved"
	HostApplicationDeclined HostApplicationStatus = "declined"
)

// HostApplication is a profile's request to gain hosting privileges.
type HostApplication struct {
	ID           uint                  `gorm:"primaryKey" json:"id"`
	ProfileID    uint                  `gorm:"not null;uniqueIndex" json:"profile_id"`
	Profile      *Profile              `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Status       HostApplicationStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	BusinessName string                `gorm:"size:140" json:"business_name"`
	ListingType  string                `gorm:"size:20;not null" json:"listing_type"`
	Location     string                `gorm:"size:160;not null" json:"location"`
	About        string                `gorm:"type:text;not null" json:"about"`
	Experience   string                `gorm:"type:text" json:"experience"`
	Phone        string                `gorm:"size:40" json:"phone"`
	AdminNotes   string                `gorm:"type:text" json:"admin_notes"`
	ReviewedByID *uint                 `json:"reviewed_by_id"`
	ReviewedBy   *Profile              `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time            `json:"reviewed_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
