// Package testutil holds database and image fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"resort/internal/database"
	"resort/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory SQLite database with every persistent model migrated.
// The pool is pinned to one connection so the in-memory database survives.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateProfile inserts a user and matching profile with role.
func CreateProfile(t *testing.T, db *gorm.DB, username string, role models.ProfileRole) *models.Profile {
	t.Helper()
	user := &models.User{
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z8rC8F3I7V9E8d1zX1bS6Z0a",
	}
	require.NoError(t, db.Create(user).Error)

	profile := &models.Profile{
		ID:       user.ID,
		Username: username,
		FullName: username + " Example",
		Role:     role,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreateAccommodation inserts an accommodation owned by hostID.
func CreateAccommodation(t *testing.T, db *gorm.DB, hostID uint, title string, price float64, published bool) *models.Accommodation {
	t.Helper()
	a := &models.Accommodation{
		HostID:        hostID,
		Title:         title,
		Description:   title + " by the water",
		Location:      "Lake Tahoe",
		PropertyType:  "cabin",
		PricePerNight: price,
		MaxGuests:     4,
		ImageURLs:     []string{"http://localhost/storage/accommodations/1/a.webp"},
		IsPublished:   published,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

// CreateExperience inserts an experience owned by hostID.
func CreateExperience(t *testing.T, db *gorm.DB, hostID uint, title string, price float64, published bool) *models.Experience {
	t.Helper()
	e := &models.Experience{
		HostID:          hostID,
		Title:           title,
		Description:     title + " in the forest",
		Location:        "Big Sur",
		Category:        "hiking",
		Price:           price,
		DurationHours:   3,
		MaxParticipants: 8,
		ImageURLs:       []string{"http://localhost/storage/experiences/1/e.webp"},
		IsPublished:     published,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

// Backdate rewrites created_at for a row of model with id.
func Backdate(t *testing.T, db *gorm.DB, model any, id uint, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(model).Where("id = ?", id).UpdateColumn("created_at", at).Error)
}
