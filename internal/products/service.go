package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// DeleteConfirmation is the literal a caller must send to destroy a record.
const DeleteConfirmation = "DELETE"

// Service exposes catalog management operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[ProductDTO], error)
	BuilderView(ctx context.Context) ([]BuilderCategoryDTO, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, confirmation string) error
	BulkArchive(ctx context.Context, ids []uuid.UUID) (*BulkResultDTO, error)
	BulkRestore(ctx context.Context, ids []uuid.UUID) (*BulkResultDTO, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID, confirmation string) (*BulkResultDTO, error)
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    enums.ProductCategory
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Category    *enums.ProductCategory
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	name := collapse(input.Name)
	description := collapse(input.Description)

	if err := validateProductFields(name, input.Price, input.Quantity, input.Category); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueIdentity(ctx, input.Category, name, description, uuid.Nil); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Description: description,
		Price:       input.Price,
		Quantity:    input.Quantity,
		Category:    input.Category,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(product), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = collapse(*input.Name)
	}
	if input.Description != nil {
		product.Description = collapse(*input.Description)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.Category != nil {
		product.Category = *input.Category
	}

	if err := validateProductFields(product.Name, product.Price, product.Quantity, product.Category); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueIdentity(ctx, product.Category, product.Name, product.Description, product.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(product), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[ProductDTO], error) {
	filter.Search = strings.ToLower(strings.TrimSpace(filter.Search))
	if filter.Category != nil && !filter.Category.IsValid() {
		return pagination.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *filter.Category))
	}

	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	page := pagination.BuildPage(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	dtos := make([]ProductDTO, 0, len(page.Items))
	for i := range page.Items {
		dtos = append(dtos, *NewProductDTO(&page.Items[i]))
	}
	return pagination.Page[ProductDTO]{Items: dtos, NextCursor: page.NextCursor}, nil
}

func (s *service) BuilderView(ctx context.Context) ([]BuilderCategoryDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list builder products")
	}

	grouped := make(map[enums.ProductCategory][]ProductDTO)
	for i := range rows {
		grouped[rows[i].Category] = append(grouped[rows[i].Category], *NewProductDTO(&rows[i]))
	}

	// Category order is fixed so the configurator page renders consistently.
	view := make([]BuilderCategoryDTO, 0, len(enums.ProductCategories()))
	for _, category := range enums.ProductCategories() {
		view = append(view, BuilderCategoryDTO{
			Category: category.String(),
			Products: grouped[category],
		})
	}
	return view, nil
}

func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if product.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is already archived")
	}
	if err := s.repo.SetArchived(ctx, id, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: archive product")
	}
	return nil
}

func (s *service) Restore(ctx context.Context, id uuid.UUID) error {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not archived")
	}
	if err := s.repo.SetArchived(ctx, id, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore product")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, confirmation string) error {
	if confirmation != DeleteConfirmation {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation mismatch: type DELETE to confirm")
	}
	return s.deleteArchived(ctx, id)
}

func (s *service) BulkArchive(ctx context.Context, ids []uuid.UUID) (*BulkResultDTO, error) {
	return s.bulkApply(ctx, ids, s.Archive)
}

func (s *service) BulkRestore(ctx context.Context, ids []uuid.UUID) (*BulkResultDTO, error) {
	return s.bulkApply(ctx, ids, s.Restore)
}

// BulkDelete is all-or-nothing on the confirmation token and per-item on the
// referential guard.
func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID, confirmation string) (*BulkResultDTO, error) {
	if confirmation != DeleteConfirmation {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation mismatch: type DELETE to confirm")
	}
	return s.bulkApply(ctx, ids, s.deleteArchived)
}

func (s *service) bulkApply(ctx context.Context, ids []uuid.UUID, action func(context.Context, uuid.UUID) error) (*BulkResultDTO, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id required")
	}

	result := &BulkResultDTO{}
	var blocked error
	for _, id := range ids {
		if err := action(ctx, id); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency {
				result.Blocked++
				blocked = multierr.Append(blocked, fmt.Errorf("%s: %s", id, typed.Message()))
				continue
			}
			return nil, err
		}
		result.Changed++
	}
	for _, err := range multierr.Errors(blocked) {
		result.Reasons = append(result.Reasons, err.Error())
	}
	return result, nil
}

// deleteArchived enforces the archived-first rule and the referential guard,
// then removes the row.
func (s *service) deleteArchived(ctx context.Context, id uuid.UUID) error {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product must be archived before deletion")
	}

	hasMovements, err := s.repo.HasStockMovements(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check stock movements")
	}
	if hasMovements {
		return pkgerrors.New(pkgerrors.CodeConflict, "product has stock-movement history")
	}

	hasItems, err := s.repo.HasBuildItems(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check build items")
	}
	if hasItems {
		return pkgerrors.New(pkgerrors.CodeConflict, "product has checkout history")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		// A checkout may have landed between the guard check and the delete.
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product has checkout history")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ensureUniqueIdentity(ctx context.Context, category enums.ProductCategory, name, description string, excludeID uuid.UUID) error {
	candidates, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category products")
	}

	normName := normalizeIdentity(name)
	normDesc := normalizeIdentity(description)
	for i := range candidates {
		if candidates[i].ID == excludeID {
			continue
		}
		if sameIdentity(normName, normDesc, candidates[i].Name, candidates[i].Description) {
			return pkgerrors.New(pkgerrors.CodeConflict, "a product with the same category, name, and description already exists")
		}
	}
	return nil
}

func validateProductFields(name string, price decimal.Decimal, quantity int, category enums.ProductCategory) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", category))
	}
	return nil
}

func collapse(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
