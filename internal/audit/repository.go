package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/repo"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// Repository manages persistence for audit log entries. The table is
// append-only: no update or delete methods exist.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.AuditLog, error)
}

// ListFilter narrows the audit listing.
type ListFilter struct {
	Action *enums.AuditAction
	Status *enums.AuditStatus
}

type repository struct {
	repo.Base
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.AuditLog, error) {
	query := r.DB(ctx).Model(&models.AuditLog{})

	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.AuditLog
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
