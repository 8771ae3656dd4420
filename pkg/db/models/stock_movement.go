package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// StockMovement is one entry in the append-only inventory ledger. Rows are
// never updated or deleted; corrections are recorded as new movements.
type StockMovement struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Product        *Product          `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	BuildID        *uuid.UUID        `gorm:"column:build_id;type:uuid"`
	Build          *Build            `gorm:"foreignKey:BuildID;constraint:OnDelete:SET NULL"`
	ChangedByID    *uuid.UUID        `gorm:"column:changed_by_id;type:uuid"`
	ChangedBy      *User             `gorm:"foreignKey:ChangedByID;constraint:OnDelete:SET NULL"`
	QuantityChange int               `gorm:"column:quantity_change;not null"`
	Reason         enums.StockReason `gorm:"column:reason;type:text;not null"`
	Note           string            `gorm:"column:note;not null;default:''"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_stock_movements_created_at,sort:desc"`
}
