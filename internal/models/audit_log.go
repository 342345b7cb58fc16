package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions written by the service layer.
const (
	AuditUserRoleChanged        = "user.role_changed"
	AuditUserBanned             = "user.banned"
	AuditUserUnbanned           = "user.unbanned"
	AuditHostApplicationApprove = "host_application.approve"
	AuditHostApplicationDecline = "host_application.decline"
	AuditListingPublishToggled  = "listing.publish_toggled"
	AuditListingDeleted         = "listing.deleted"
	AuditCommentDeleted         = "comment.deleted"
	AuditAdminMessage           = "admin.message"
)

// AuditLog is an append-only record of an admin or system action.
// A nil ActorID means the system acted.
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ActorID    *uint          `gorm:"index" json:"actor_id"`
	Actor      *Profile       `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     string         `gorm:"size:64;not null;index" json:"action"`
	EntityType string         `gorm:"size:40;not null;index" json:"entity_type"`
	EntityID   string         `gorm:"size:64" json:"entity_id"`
	Details    datatypes.JSON `json:"details"`
	IPAddress  string         `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
