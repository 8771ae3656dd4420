package builds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
)

// BuildDTO is a saved PC configuration returned to clients.
type BuildDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	IsArchived bool            `json:"is_archived"`
	Items      []BuildItemDTO  `json:"items,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BuildItemDTO is one product line within a build.
type BuildItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

// BulkResultDTO summarizes a bulk archive/restore/delete run.
type BulkResultDTO struct {
	Changed int      `json:"changed"`
	Blocked int      `json:"blocked"`
	Reasons []string `json:"reasons,omitempty"`
}

// ReorderItemDTO is the prefill pair staged for the builder page.
type ReorderItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// NewBuildDTO builds a DTO from the persisted model.
func NewBuildDTO(build *models.Build) *BuildDTO {
	dto := &BuildDTO{
		ID:         build.ID,
		UserID:     build.UserID,
		TotalPrice: build.TotalPrice,
		Status:     build.Status.String(),
		IsArchived: build.IsArchived,
		CreatedAt:  build.CreatedAt,
	}
	for i := range build.Items {
		item := &build.Items[i]
		itemDTO := BuildItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			PriceAtTime: item.PriceAtTime,
		}
		if item.Product != nil {
			itemDTO.ProductName = item.Product.Name
		}
		dto.Items = append(dto.Items, itemDTO)
	}
	return dto
}
