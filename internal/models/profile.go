package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileRole is the marketplace role of a profile.
type ProfileRole string

const (
	RoleGuest ProfileRole = "guest"
	RoleHost  ProfileRole = "host"
	RoleAdmin ProfileRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleGuest, RoleHost, RoleAdmin:
		return true
	}
	return false
}

// CanHost reports whether the role may publish listings.
func (r ProfileRole) CanHost() bool {
	return r == RoleHost || r == RoleAdmin
}

// Profile is the application-level user record. Its ID equals the owning User's ID.
type Profile struct {
	ID         uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username   string                      `gorm:"size:30;uniqueIndex;not null" json:"username"`
	FullName   string                      `gorm:"size:120" json:"full_name"`
	AvatarURL  string                      `json:"avatar_url"`
	Bio        string                      `gorm:"type:text" json:"bio"`
	Location   string                      `gorm:"size:120" json:"location"`
	Interests  datatypes.JSONSlice[string] `json:"interests"`
	Role       ProfileRole                 `gorm:"type:varchar(16);not null;default:'guest';index" json:"role"`
	IsBanned   bool                        `gorm:"not null;default:false" json:"is_banned"`
	LastSeenAt *time.Time                  `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// ProfileSummary is the compact projection embedded in listings, messages and events.
type ProfileSummary struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	FullName  string      `json:"full_name"`
	AvatarURL string      `json:"avatar_url"`
	Role      ProfileRole `json:"role"`
}

// Summary projects p into a ProfileSummary.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:        p.ID,
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
	}
}
