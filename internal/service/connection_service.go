package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"resort/internal/models"
	"resort/internal/observability"
	"resort/internal/repository"
)

const maxConnectionMessageLen = 500

// TribeMember is one profile in the tribe view with its connection state
// relative to the viewer.
type TribeMember struct {
	Profile           models.ProfileSummary `json:"profile"`
	ConnectionID      uint                  `json:"connection_id,omitempty"`
	Pending           bool                  `json:"pending"`
	IncomingRequestID *uint                 `json:"incoming_request_id,omitempty"`
}

// Tribe partitions every other profile by connection state.
type Tribe struct {
	Connected   []TribeMember `json:"connected"`
	Unconnected []TribeMember `json:"unconnected"`
}

// ConnectionService implements tribe connection requests.
type ConnectionService struct {
	connections repository.ConnectionRepository
	profiles    repository.ProfileRepository
	events      Publisher
}

// NewConnectionService returns a new ConnectionService.
func NewConnectionService(connections repository.ConnectionRepository, profiles repository.ProfileRepository, events Publisher) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		profiles:    profiles,
		events:      publisherOrNop(events),
	}
}

func (s *ConnectionService) publish(ctx context.Context, event string, conn *models.Connection) {
	s.events.Change(ctx, TableConnections, event, conn, conn.InviterID, conn.InviteeID)
}

// Request sends a pending connection request from inviterID to inviteeID.
func (s *ConnectionService) Request(ctx context.Context, inviterID, inviteeID uint, message string) (*models.Connection, error) {
	conn, err := s.request(ctx, inviterID, inviteeID, message)
	outcome := "created"
	if err != nil {
		outcome = models.ErrorCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	observability.ConnectionRequests.WithLabelValues(strings.ToLower(outcome)).Inc()
	return conn, err
}

func (s *ConnectionService) request(ctx context.Context, inviterID, inviteeID uint, message string) (*models.Connection, error) {
	if inviterID == inviteeID {
		return nil, models.NewValidationError("You cannot connect with yourself")
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxConnectionMessageLen {
		return nil, models.NewValidationError("Message too long (max 500 characters)")
	}

	invitee, err := s.profiles.GetByID(ctx, inviteeID)
	if err != nil {
		return nil, err
	}
	if invitee.IsBanned {
		return nil, models.NewNotFoundError("Profile", inviteeID)
	}

	existing, err := s.connections.Between(ctx, inviterID, inviteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.ConnectionAccepted {
			return nil, models.NewConflictError("connection already exists")
		}
		return nil, models.NewConflictError("connection request already pending")
	}

	conn := &models.Connection{
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    models.ConnectionPending,
		Message:   message,
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, duplicateAs(err, "connection request already pending")
	}

	created, err := s.connections.GetByID(ctx, conn.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ChangeInsert, created)
	return created, nil
}

// pendingFor loads a pending request and checks that userID is on the expected side.
func (s *ConnectionService) pendingFor(ctx context.Context, userID, requestID uint, asInvitee bool) (*models.Connection, error) {
	conn, err := s.connections.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if asInvitee && conn.InviteeID != userID {
		return nil, models.NewForbiddenError("Only the invited profile can respond to this request")
	}
	if !asInvitee && conn.InviterID != userID {
		return nil, models.NewForbiddenError("Only the sender can cancel this request")
	}
	if conn.Status != models.ConnectionPending {
		return nil, models.NewConflictError("Connection request is not pending")
	}
	return conn, nil
}

// notPending reports a request that changed status after it was loaded.
func notPending(err error) error {
	if models.ErrorCode(err) == models.CodeNotFound {
		return models.NewConflictError("Connection request is not pending")
	}
	return err
}

// Accept moves a pending request addressed to userID to accepted.
func (s *ConnectionService) Accept(ctx context.Context, userID, requestID uint) (*models.Connection, error) {
	if _, err := s.pendingFor(ctx, userID, requestID, true); err != nil {
		return nil, err
	}
	if err := s.connections.UpdateStatus(ctx, requestID, models.ConnectionPending, models.ConnectionAccepted); err != nil {
		return nil, notPending(err)
	}
	conn, err := s.connections.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ChangeUpdate, conn)
	return conn, nil
}

// Decline deletes a pending request addressed to userID.
func (s *ConnectionService) Decline(ctx context.Context, userID, requestID uint) (*models.Connection, error) {
	conn, err := s.pendingFor(ctx, userID, requestID, true)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Delete(ctx, requestID, models.ConnectionPending); err != nil {
		return nil, notPending(err)
	}
	s.publish(ctx, ChangeDelete, conn)
	return conn, nil
}

// Cancel deletes a pending request sent by userID.
func (s *ConnectionService) Cancel(ctx context.Context, userID, requestID uint) (*models.Connection, error) {
	conn, err := s.pendingFor(ctx, userID, requestID, false)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Delete(ctx, requestID, models.ConnectionPending); err != nil {
		return nil, notPending(err)
	}
	s.publish(ctx, ChangeDelete, conn)
	return conn, nil
}

// Remove deletes the accepted connection between userID and otherID.
func (s *ConnectionService) Remove(ctx context.Context, userID, otherID uint) (*models.Connection, error) {
	conn, err := s.connections.Between(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if conn == nil || conn.Status != models.ConnectionAccepted {
		return nil, models.NewNotFoundError("Connection with profile", otherID)
	}
	if err := s.connections.Delete(ctx, conn.ID, models.ConnectionAccepted); err != nil {
		return nil, err
	}
	s.publish(ctx, ChangeDelete, conn)
	return conn, nil
}

// Incoming lists pending requests addressed to userID.
func (s *ConnectionService) Incoming(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.Incoming(ctx, userID)
}

// Sent lists pending requests sent by userID.
func (s *ConnectionService) Sent(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.Sent(ctx, userID)
}

// Accepted lists accepted connections touching userID.
func (s *ConnectionService) Accepted(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.Accepted(ctx, userID)
}

// ConnectedIDs returns the ids of every profile with an accepted edge to userID.
func (s *ConnectionService) ConnectedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	conns, err := s.connections.Accepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(conns))
	for i := range conns {
		out[conns[i].OtherParty(userID)] = true
	}
	return out, nil
}

// Tribe partitions every other non-banned profile into connected and unconnected.
func (s *ConnectionService) Tribe(ctx context.Context, userID uint) (*Tribe, error) {
	profiles, err := s.profiles.ListOthers(ctx, userID)
	if err != nil {
		return nil, err
	}
	conns, err := s.connections.ForProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	byOther := make(map[uint]models.Connection, len(conns))
	for _, c := range conns {
		byOther[c.OtherParty(userID)] = c
	}

	tribe := &Tribe{Connected: []TribeMember{}, Unconnected: []TribeMember{}}
	for _, p := range profiles {
		member := TribeMember{Profile: p.Summary()}
		c, ok := byOther[p.ID]
		switch {
		case ok && c.Status == models.ConnectionAccepted:
			member.ConnectionID = c.ID
			tribe.Connected = append(tribe.Connected, member)
			continue
		case ok && c.InviterID == userID:
			member.ConnectionID = c.ID
			member.Pending = true
		case ok:
			id := c.ID
			member.ConnectionID = c.ID
			member.IncomingRequestID = &id
		}
		tribe.Unconnected = append(tribe.Unconnected, member)
	}
	return tribe, nil
}
