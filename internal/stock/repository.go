package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/repo"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// Repository manages the append-only stock movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.StockMovement) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.StockMovement, error)
	ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
}

// ListFilter narrows the movement listing.
type ListFilter struct {
	ProductID *uuid.UUID
}

type repository struct {
	repo.Base
}

// NewRepository returns a stock movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, movement *models.StockMovement) error {
	return r.DB(ctx).Create(movement).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.StockMovement, error) {
	query := r.DB(ctx).Model(&models.StockMovement{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
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

	var movements []models.StockMovement
	if err := query.
		Preload("Product").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ExistsForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.StockMovement{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
