package database

import (
	"testing"

	"resort/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesMarketplaceTables(t *testing.T) {
	var sawProfile, sawHostApp, sawEngagement bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Profile:
			sawProfile = true
		case *models.HostApplication:
			sawHostApp = true
		case *models.EngagementEvent:
			sawEngagement = true
		}
	}
	assert.True(t, sawProfile)
	assert.True(t, sawHostApp)
	assert.True(t, sawEngagement)
}

func TestPersistentModels_AutoMigrateOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	for _, table := range []string{"users", "profiles", "accommodations", "experiences", "connections",
		"messages", "host_applications", "audit_logs", "comments", "favorites", "engagement_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestMessageUnreadIndexColumns(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	var cols []string
	require.NoError(t, db.Raw("SELECT name FROM pragma_index_info('idx_messages_unread') ORDER BY seqno").Scan(&cols).Error)
	assert.Equal(t, []string{"recipient_id", "sender_id", "is_read"}, cols)
}
