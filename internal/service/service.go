// Package service provides the marketplace business logic: listings, tribe
// connections, messaging, host applications and the admin back-office.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/repository"

	"gorm.io/datatypes"
)

// Change-feed tables and events.
const (
	TableMessages    = "messages"
	TableConnections = "connections"

	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Realtime event types pushed to user sockets.
const (
	EventHostApplicationReviewed = "host_application_reviewed"
	EventAnnouncement            = "announcement"
	EventUnreadCount             = "unread_count"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ProfileID uint
	Role      models.ProfileRole
	IP        string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManage reports whether the actor owns ownerID's content or is an admin.
func (a Actor) CanManage(ownerID uint) bool {
	return a.ProfileID == ownerID || a.IsAdmin()
}

// Publisher delivers realtime events to connected users.
type Publisher interface {
	// Change publishes a row-change event for table to every listed user.
	Change(ctx context.Context, table, event string, record any, userIDs ...uint)
	UserEvent(ctx context.Context, userID uint, eventType string, payload any)
	Broadcast(ctx context.Context, eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Change(context.Context, string, string, any, ...uint) {}
func (nopPublisher) UserEvent(context.Context, uint, string, any)         {}
func (nopPublisher) Broadcast(context.Context, string, any)               {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// duplicateAs converts repository.ErrDuplicate into a conflict with message.
func duplicateAs(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return models.NewConflictError(message)
	}
	return err
}

func jsonDetails(details map[string]any) datatypes.JSON {
	if len(details) == 0 {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// auditEntry builds an audit row attributed to actor.
func auditEntry(actor Actor, action, entityType string, entityID any, details map[string]any) *models.AuditLog {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   fmt.Sprint(entityID),
		Details:    jsonDetails(details),
		IPAddress:  actor.IP,
	}
	if actor.ProfileID != 0 {
		id := actor.ProfileID
		entry.ActorID = &id
	}
	return entry
}

// recordAudit appends an audit row. Failures are logged and swallowed.
func recordAudit(ctx context.Context, repo repository.AuditLogRepository, entry *models.AuditLog) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to write audit log",
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.String("entity_id", entry.EntityID),
			slog.String("error", err.Error()),
		)
	}
}
