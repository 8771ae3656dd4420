package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// Service exposes inventory mutation and ledger read operations.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*MovementDTO, error)
	Restock(ctx context.Context, input RestockInput) (*MovementDTO, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[MovementDTO], error)
}

// AdjustInput corrects on-hand stock by a signed delta.
type AdjustInput struct {
	ProductID uuid.UUID
	Delta     int
	Note      string
	ActorID   uuid.UUID
}

// RestockInput adds received stock.
type RestockInput struct {
	ProductID uuid.UUID
	Quantity  int
	Note      string
	ActorID   uuid.UUID
}

type service struct {
	repo        Repository
	productRepo *products.Repository
	dbClient    *db.Client
}

// NewService constructs a stock service instance.
func NewService(repo Repository, productRepo *products.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, productRepo: productRepo, dbClient: dbClient}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*MovementDTO, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	return s.mutate(ctx, input.ProductID, input.Delta, enums.StockReasonAdjustment, input.Note, input.ActorID)
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*MovementDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.mutate(ctx, input.ProductID, input.Quantity, enums.StockReasonRestock, input.Note, input.ActorID)
}

// mutate applies the delta under a row lock and appends the ledger entry in
// the same transaction.
func (s *service) mutate(ctx context.Context, productID uuid.UUID, delta int, reason enums.StockReason, note string, actorID uuid.UUID) (*MovementDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var movement *models.StockMovement
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txProducts := s.productRepo.WithTx(tx)
		txRepo := s.repo.WithTx(tx)

		product, err := txProducts.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}
		if product.IsArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is archived")
		}

		newQuantity := product.Quantity + delta
		if newQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("adjustment would drive stock negative (on hand %d)", product.Quantity))
		}
		product.Quantity = newQuantity
		if err := txProducts.Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update quantity")
		}

		actor := actorID
		movement = &models.StockMovement{
			ProductID:      productID,
			ChangedByID:    &actor,
			QuantityChange: delta,
			Reason:         reason,
			Note:           note,
		}
		if actorID == uuid.Nil {
			movement.ChangedByID = nil
		}
		if err := txRepo.Create(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert movement")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock mutation")
	}
	return NewMovementDTO(movement), nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[MovementDTO], error) {
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[MovementDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list movements")
	}

	page := pagination.BuildPage(rows, params.Limit, func(m models.StockMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	dtos := make([]MovementDTO, 0, len(page.Items))
	for i := range page.Items {
		dtos = append(dtos, *NewMovementDTO(&page.Items[i]))
	}
	return pagination.Page[MovementDTO]{Items: dtos, NextCursor: page.NextCursor}, nil
}
