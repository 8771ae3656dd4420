package builds

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

// Repository wires together build persistence helpers.
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

// Create inserts the build.
func (r *Repository) Create(ctx context.Context, build *models.Build) error {
	return r.DB(ctx).Create(build).Error
}

// Save persists all fields of the build.
func (r *Repository) Save(ctx context.Context, build *models.Build) error {
	return r.DB(ctx).Save(build).Error
}

// FindByID loads the build with its items and their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Build, error) {
	var build models.Build
	if err := r.DB(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&build, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &build, nil
}

// FindDraftForUpdate loads the user's open draft under a row lock, if any.
// Returns gorm.ErrRecordNotFound when the user has no draft.
func (r *Repository) FindDraftForUpdate(ctx context.Context, userID uuid.UUID) (*models.Build, error) {
	var build models.Build
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ? AND is_archived = ?", userID, enums.BuildStatusDraft, false).
		Order("created_at DESC").
		First(&build).Error; err != nil {
		return nil, err
	}
	return &build, nil
}

// ListByUser returns the user's builds newest-first, split by archived view.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, archived bool, params pagination.Params) ([]models.Build, error) {
	query := r.DB(ctx).
		Model(&models.Build{}).
		Where("user_id = ? AND is_archived = ?", userID, archived)

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

	var builds []models.Build
	if err := query.
		Preload("Items").
		Preload("Items.Product").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&builds).Error; err != nil {
		return nil, err
	}
	return builds, nil
}

// ReplaceItems removes every line on the build and inserts the new set.
func (r *Repository) ReplaceItems(ctx context.Context, buildID uuid.UUID, items []models.BuildItem) error {
	tx := r.DB(ctx)
	if err := tx.Where("build_id = ?", buildID).Delete(&models.BuildItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// SetArchived flips the archived flag.
func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return r.DB(ctx).
		Model(&models.Build{}).
		Where("id = ?", id).
		Update("is_archived", archived).Error
}

// Delete removes the build; line items cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Build{}, "id = ?", id).Error
}
