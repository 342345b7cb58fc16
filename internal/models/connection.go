package models

import "time"

// ConnectionStatus is the lifecycle state of a tribe connection.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
)

// Connection is a directed tribe edge created by the inviter. Declined
// requests are deleted rather than kept with a terminal status.
type Connection struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	InviterID uint             `gorm:"not null;uniqueIndex:idx_connections_pair" json:"inviter_id"`
	Inviter   *Profile         `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
	InviteeID uint             `gorm:"not null;uniqueIndex:idx_connections_pair;index" json:"invitee_id"`
	Invitee   *Profile         `gorm:"foreignKey:InviteeID" json:"invitee,omitempty"`
	Status    ConnectionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Message   string           `gorm:"type:text" json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Involves reports whether profileID is either end of the edge.
func (c *Connection) Involves(profileID uint) bool {
	return c.InviterID == profileID || c.InviteeID == profileID
}

// OtherParty returns the id on the opposite end from profileID.
func (c *Connection) OtherParty(profileID uint) uint {
	if c.InviterID == profileID {
		return c.InviteeID
	}
	return c.InviterID
}
