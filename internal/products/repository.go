package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/repo"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// ListFilter describes the supported filter knobs for the catalog listing.
type ListFilter struct {
	Search          string
	Category        *enums.ProductCategory
	IncludeArchived bool
}

// Repository wires together product persistence helpers.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

// Create inserts the product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// Save persists all fields of the product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Save(product).Error
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads the product under a row lock. Must run inside a
// transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByIDsForUpdate locks the referenced rows in ascending id order so
// concurrent checkouts acquire locks deterministically.
func (r *Repository) ListByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// List returns a catalog page, newest-first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Product, error) {
	query := r.DB(ctx).Model(&models.Product{})

	if !filter.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+filter.Search+"%")
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

	var products []models.Product
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListActive returns every non-archived product ordered by category then name,
// for the builder view.
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB(ctx).
		Where("is_archived = ?", false).
		Order("category ASC, name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListByCategory returns every product of the category, archived included.
// Used for the duplicate-identity check, which normalizes in memory.
func (r *Repository) ListByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB(ctx).
		Where("category = ?", category).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// SetArchived flips the archived flag.
func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_archived", archived).Error
}

// Delete removes the product row permanently.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// HasBuildItems reports whether any build line item references the product.
func (r *Repository) HasBuildItems(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.BuildItem{}).
		Where("product_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasStockMovements reports whether any ledger entry references the product.
func (r *Repository) HasStockMovements(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.StockMovement{}).
		Where("product_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
