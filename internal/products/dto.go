package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	IsArchived  bool            `json:"is_archived"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Quantity:    product.Quantity,
		Category:    product.Category.String(),
		IsArchived:  product.IsArchived,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

// BuilderCategoryDTO groups the purchasable products of one category for the
// build configurator page.
type BuilderCategoryDTO struct {
	Category string       `json:"category"`
	Products []ProductDTO `json:"products"`
}

// BulkResultDTO summarizes a bulk archive/restore/delete run.
type BulkResultDTO struct {
	Changed int      `json:"changed"`
	Blocked int      `json:"blocked"`
	Reasons []string `json:"reasons,omitempty"`
}
