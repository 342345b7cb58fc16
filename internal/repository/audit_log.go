package repository

import (
	"context"
	"time"

	"resort/internal/models"

	"gorm.io/gorm"
)

// AuditLogFilter narrows the audit log viewer.
type AuditLogFilter struct {
	Action     string
	EntityType string
	ActorID    uint
	Since      *time.Time
}

// AuditLogRepository appends and reads audit rows. There is deliberately no update or delete.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter, limit, offset int) ([]models.AuditLog, int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository returns an AuditLogRepository backed by db.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Omit("Actor").Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter, limit, offset int) ([]models.AuditLog, int64, error) {
	limit, offset = clampPage(limit, offset)

	q := readDB(r.db).WithContext(ctx).Model(&models.AuditLog{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var entries []models.AuditLog
	if err := q.Preload("Actor").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return entries, total, nil
}
