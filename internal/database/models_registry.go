package database

import "resort/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Accommodation{},
		&models.Experience{},
		&models.Connection{},
		&models.Message{},
		&models.HostApplication{},
		&models.AuditLog{},
		&models.Comment{},
		&models.Favorite{},
		&models.EngagementEvent{},
	}
}
