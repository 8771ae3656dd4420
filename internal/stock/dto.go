package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
)

// MovementDTO is one inventory ledger row returned to admin clients.
type MovementDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	ProductName    string     `json:"product_name,omitempty"`
	BuildID        *uuid.UUID `json:"build_id,omitempty"`
	ChangedByID    *uuid.UUID `json:"changed_by_id,omitempty"`
	QuantityChange int        `json:"quantity_change"`
	Reason         string     `json:"reason"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewMovementDTO builds a DTO from the persisted model.
func NewMovementDTO(movement *models.StockMovement) *MovementDTO {
	dto := &MovementDTO{
		ID:             movement.ID,
		ProductID:      movement.ProductID,
		BuildID:        movement.BuildID,
		ChangedByID:    movement.ChangedByID,
		QuantityChange: movement.QuantityChange,
		Reason:         movement.Reason.String(),
		Note:           movement.Note,
		CreatedAt:      movement.CreatedAt,
	}
	if movement.Product != nil {
		dto.ProductName = movement.Product.Name
	}
	return dto
}
