package repository

import (
	"context"
	"errors"

	"resort/internal/models"

	"gorm.io/gorm"
)

// ConnectionRepository persists tribe connections.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *models.Connection) error
	GetByID(ctx context.Context, id uint) (*models.Connection, error)
	// Between returns the edge joining a and b in either direction, or nil.
	Between(ctx context.Context, a, b uint) (*models.Connection, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.ConnectionStatus) error
	Delete(ctx context.Context, id uint, status models.ConnectionStatus) error
	Incoming(ctx context.Context, profileID uint) ([]models.Connection, error)
	Sent(ctx context.Context, profileID uint) ([]models.Connection, error)
	Accepted(ctx context.Context, profileID uint) ([]models.Connection, error)
	// ForProfile returns every edge touching profileID, any status.
	ForProfile(ctx context.Context, profileID uint) ([]models.Connection, error)
	CountAccepted(ctx context.Context) (int64, error)
}

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository returns a ConnectionRepository backed by db.
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	if err := r.db.WithContext(ctx).Omit("Inviter", "Invitee").Create(conn).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).Preload("Inviter").Preload("Invitee").First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Connection request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) Between(ctx context.Context, a, b uint) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Where("(inviter_id = ? AND invitee_id = ?) OR (inviter_id = ? AND invitee_id = ?)", a, b, b, a).
		First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

// UpdateStatus moves id from one status to another. A row no longer in
// from is reported as not found so concurrent transitions cannot both win.
func (r *connectionRepository) UpdateStatus(ctx context.Context, id uint, from, to models.ConnectionStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Connection request", id)
	}
	return nil
}

// Delete removes id only while it is still in status, with the same not found
// contract as UpdateStatus.
func (r *connectionRepository) Delete(ctx context.Context, id uint, status models.ConnectionStatus) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.Connection{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Connection", id)
	}
	return nil
}

func (r *connectionRepository) list(ctx context.Context, where string, args ...any) ([]models.Connection, error) {
	var conns []models.Connection
	if err := readDB(r.db).WithContext(ctx).
		Where(where, args...).
		Preload("Inviter").
		Preload("Invitee").
		Order("created_at DESC, id DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) Incoming(ctx context.Context, profileID uint) ([]models.Connection, error) {
	return r.list(ctx, "invitee_id = ? AND status = ?", profileID, models.ConnectionPending)
}

func (r *connectionRepository) Sent(ctx context.Context, profileID uint) ([]models.Connection, error) {
	return r.list(ctx, "inviter_id = ? AND status = ?", profileID, models.ConnectionPending)
}

func (r *connectionRepository) Accepted(ctx context.Context, profileID uint) ([]models.Connection, error) {
	return r.list(ctx, "(inviter_id = ? OR invitee_id = ?) AND status = ?", profileID, profileID, models.ConnectionAccepted)
}

func (r *connectionRepository) ForProfile(ctx context.Context, profileID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := readDB(r.db).WithContext(ctx).
		Where("inviter_id = ? OR invitee_id = ?", profileID, profileID).
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) CountAccepted(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Connection{}).
		Where("status = ?", models.ConnectionAccepted).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
