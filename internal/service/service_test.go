package service

import (
	"context"
	"sync"
	"testing"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeForbidden)
}

type publishedChange struct {
	Table   string
	Event   string
	Record  any
	UserIDs []uint
}

type publishedUserEvent struct {
	UserID  uint
	Type    string
	Payload any
}

// recordingPublisher captures realtime events for assertions.
type recordingPublisher struct {
	mu         sync.Mutex
	changes    []publishedChange
	userEvents []publishedUserEvent
	broadcasts []string
}

func (p *recordingPublisher) Change(_ context.Context, table, event string, record any, userIDs ...uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, publishedChange{Table: table, Event: event, Record: record, UserIDs: userIDs})
}

func (p *recordingPublisher) UserEvent(_ context.Context, userID uint, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userEvents = append(p.userEvents, publishedUserEvent{UserID: userID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) Broadcast(_ context.Context, eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, eventType)
}

func (p *recordingPublisher) lastChange(t *testing.T) publishedChange {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.changes)
	return p.changes[len(p.changes)-1]
}

// testEnv wires every service over one SQLite database.
type testEnv struct {
	db     *gorm.DB
	events *recordingPublisher

	users          repository.UserRepository
	profiles       repository.ProfileRepository
	accommodations repository.AccommodationRepository
	experiences    repository.ExperienceRepository
	comments       repository.CommentRepository
	favorites      repository.FavoriteRepository
	connections    repository.ConnectionRepository
	messages       repository.MessageRepository
	applications   repository.HostApplicationRepository
	audit          repository.AuditLogRepository
	engagementRepo repository.EngagementRepository

	auth        *AuthService
	listings    *ListingService
	engagement  *EngagementService
	comment     *CommentService
	favorite    *FavoriteService
	connection  *ConnectionService
	message     *MessageService
	application *HostApplicationService
	admin       *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	env := &testEnv{
		db:             db,
		events:         &recordingPublisher{},
		users:          repository.NewUserRepository(db),
		profiles:       repository.NewProfileRepository(db),
		accommodations: repository.NewAccommodationRepository(db),
		experiences:    repository.NewExperienceRepository(db),
		comments:       repository.NewCommentRepository(db),
		favorites:      repository.NewFavoriteRepository(db),
		connections:    repository.NewConnectionRepository(db),
		messages:       repository.NewMessageRepository(db),
		applications:   repository.NewHostApplicationRepository(db),
		audit:          repository.NewAuditLogRepository(db),
		engagementRepo: repository.NewEngagementRepository(db),
	}

	env.auth = NewAuthService(env.users, env.profiles)
	env.auth.hashCost = 4
	env.listings = NewListingService(env.accommodations, env.experiences, env.comments, env.favorites, env.audit)
	env.engagement = NewEngagementService(env.engagementRepo)
	env.comment = NewCommentService(env.comments, env.listings, env.engagement, env.audit)
	env.favorite = NewFavoriteService(env.favorites, env.listings, env.engagement)
	env.connection = NewConnectionService(env.connections, env.profiles, env.events)
	env.message = NewMessageService(env.messages, env.profiles, env.connections, env.events)
	env.application = NewHostApplicationService(env.applications, env.events)
	env.admin = NewAdminService(AdminRepos{
		Profiles:       env.profiles,
		Accommodations: env.accommodations,
		Experiences:    env.experiences,
		Applications:   env.applications,
		Messages:       env.messages,
		Connections:    env.connections,
		Audit:          env.audit,
	}, env.message, env.events)
	return env
}

func actorFor(p *models.Profile) Actor {
	return Actor{ProfileID: p.ID, Role: p.Role, IP: "127.0.0.1"}
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	rows, _, err := e.audit.List(context.Background(), repository.AuditLogFilter{}, 100, 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(rows))
	for _, r := range rows {
		actions = append(actions, r.Action)
	}
	return actions
}
