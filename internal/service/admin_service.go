package service

import (
	"context"
	"strings"
	"time"

	"resort/internal/models"
	"resort/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Dashboard is the admin overview.
type Dashboard struct {
	Profiles                int64 `json:"profiles"`
	Hosts                   int64 `json:"hosts"`
	Admins                  int64 `json:"admins"`
	Banned                  int64 `json:"banned"`
	Accommodations          int64 `json:"accommodations"`
	PublishedAccommodations int64 `json:"published_accommodations"`
	Experiences             int64 `json:"experiences"`
	PublishedExperiences    int64 `json:"published_experiences"`
	PendingApplications     int64 `json:"pending_host_applications"`
	MessagesLast24h         int64 `json:"messages_last_24h"`
	AcceptedConnections     int64 `json:"accepted_connections"`
}

// AdminMessageInput addresses an admin message to recipients or everyone.
type AdminMessageInput struct {
	RecipientIDs []uint `json:"recipient_ids"`
	Broadcast    bool   `json:"broadcast"`
	Content      string `json:"content"`
}

// AdminMessageResult reports delivery of an admin message.
type AdminMessageResult struct {
	Sent   int    `json:"sent"`
	Failed []uint `json:"failed,omitempty"`
}

// AuditEventInput is an explicit audit entry written by an admin client.
type AuditEventInput struct {
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
}

// AdminRepos groups the repositories the back-office reads.
type AdminRepos struct {
	Profiles       repository.ProfileRepository
	Accommodations repository.AccommodationRepository
	Experiences    repository.ExperienceRepository
	Applications   repository.HostApplicationRepository
	Messages       repository.MessageRepository
	Connections    repository.ConnectionRepository
	Audit          repository.AuditLogRepository
}

// AdminService implements the admin back-office.
type AdminService struct {
	repos    AdminRepos
	messages *MessageService
	events   Publisher
	now      func() time.Time
}

// NewAdminService returns a new AdminService.
func NewAdminService(repos AdminRepos, messages *MessageService, events Publisher) *AdminService {
	return &AdminService{repos: repos, messages: messages, events: publisherOrNop(events), now: time.Now}
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

// Dashboard gathers every count concurrently.
func (s *AdminService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		out         Dashboard
		profiles    *repository.ProfileCounts
		stays, exps *repository.ListingCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profiles, err = s.repos.Profiles.Counts(gctx)
		return err
	})
	g.Go(func() (err error) {
		stays, err = s.repos.Accommodations.Counts(gctx)
		return err
	})
	g.Go(func() (err error) {
		exps, err = s.repos.Experiences.Counts(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingApplications, err = s.repos.Applications.CountPending(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.MessagesLast24h, err = s.repos.Messages.CountSince(gctx, s.now().Add(-24*time.Hour))
		return err
	})
	g.Go(func() (err error) {
		out.AcceptedConnections, err = s.repos.Connections.CountAccepted(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Profiles, out.Hosts, out.Admins, out.Banned = profiles.Total, profiles.Hosts, profiles.Admins, profiles.Banned
	out.Accommodations, out.PublishedAccommodations = stays.Total, stays.Published
	out.Experiences, out.PublishedExperiences = exps.Total, exps.Published
	return &out, nil
}

// ListUsers searches profiles with their emails.
func (s *AdminService) ListUsers(ctx context.Context, actor Actor, filter repository.ProfileFilter, limit, offset int) ([]repository.ProfileWithEmail, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, models.NewValidationError("Unknown role")
	}
	rows, total, err := s.repos.Profiles.Search(ctx, filter, limit, offset)
	if rows == nil {
		rows = []repository.ProfileWithEmail{}
	}
	return rows, total, err
}

// UpdateUserRole changes a profile's role. Admins cannot change their own role.
func (s *AdminService) UpdateUserRole(ctx context.Context, actor Actor, profileID uint, role models.ProfileRole) (*models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be guest, host or admin")
	}
	if profileID == actor.ProfileID {
		return nil, models.NewValidationError("You cannot change your own role")
	}
	target, err := s.repos.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	previous := target.Role
	if previous == role {
		return target, nil
	}
	if err := s.repos.Profiles.SetRole(ctx, profileID, role); err != nil {
		return nil, err
	}
	recordAudit(ctx, s.repos.Audit, auditEntry(actor, models.AuditUserRoleChanged, "profile", profileID, map[string]any{
		"from": previous,
		"to":   role,
	}))
	return s.repos.Profiles.GetByID(ctx, profileID)
}

// SetBanned bans or unbans a profile. Admins and the caller cannot be banned.
func (s *AdminService) SetBanned(ctx context.Context, actor Actor, profileID uint, banned bool) (*models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if profileID == actor.ProfileID {
		return nil, models.NewValidationError("You cannot ban yourself")
	}
	target, err := s.repos.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if banned && target.IsAdmin() {
		return nil, models.NewForbiddenError("Admins cannot be banned")
	}
	if target.IsBanned == banned {
		return target, nil
	}
	if err := s.repos.Profiles.SetBanned(ctx, profileID, banned); err != nil {
		return nil, err
	}
	action := models.AuditUserUnbanned
	if banned {
		action = models.AuditUserBanned
	}
	recordAudit(ctx, s.repos.Audit, auditEntry(actor, action, "profile", profileID, map[string]any{
		"username": target.Username,
	}))
	return s.repos.Profiles.GetByID(ctx, profileID)
}

// LogAuditEvent appends an explicit audit row.
func (s *AdminService) LogAuditEvent(ctx context.Context, actor Actor, in AuditEventInput) (*models.AuditLog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Action = strings.TrimSpace(in.Action)
	in.EntityType = strings.TrimSpace(in.EntityType)
	if in.Action == "" || in.EntityType == "" {
		return nil, models.NewValidationError("action and entity_type are required")
	}
	if len(in.Action) > 64 || len(in.EntityType) > 40 || len(in.EntityID) > 64 {
		return nil, models.NewValidationError("action, entity_type or entity_id too long")
	}
	entry := auditEntry(actor, in.Action, in.EntityType, strings.TrimSpace(in.EntityID), in.Details)
	if err := s.repos.Audit.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListAuditLogs returns audit rows newest first.
func (s *AdminService) ListAuditLogs(ctx context.Context, actor Actor, filter repository.AuditLogFilter, limit, offset int) ([]models.AuditLog, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.repos.Audit.List(ctx, filter, limit, offset)
	if rows == nil {
		rows = []models.AuditLog{}
	}
	return rows, total, err
}

// SendMessage delivers an admin message from the actor's profile through the
// regular message path.
func (s *AdminService) SendMessage(ctx context.Context, actor Actor, in AdminMessageInput) (*AdminMessageResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message cannot be empty")
	}

	recipients := in.RecipientIDs
	if in.Broadcast {
		ids, err := s.repos.Profiles.ListIDs(ctx)
		if err != nil {
			return nil, err
		}
		recipients = ids
	}
	if len(recipients) == 0 {
		return nil, models.NewValidationError("Choose at least one recipient or broadcast")
	}

	result := &AdminMessageResult{}
	seen := map[uint]bool{actor.ProfileID: true}
	var sendErr error
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.messages.Send(ctx, actor.ProfileID, id, content, ""); err != nil {
			if models.ErrorCode(err) == models.CodeInternal {
				sendErr = err
				break
			}
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Sent++
	}

	if in.Broadcast && sendErr == nil {
		s.events.Broadcast(ctx, EventAnnouncement, map[string]any{
			"from":    actor.ProfileID,
			"content": content,
		})
	}
	details := map[string]any{
		"broadcast":  in.Broadcast,
		"recipients": result.Sent,
		"failed":     len(result.Failed),
	}
	if sendErr != nil {
		details["aborted"] = true
	}
	// Messages already delivered are audited even when the run stops early.
	recordAudit(ctx, s.repos.Audit, auditEntry(actor, models.AuditAdminMessage, "message", "", details))
	return result, sendErr
}
