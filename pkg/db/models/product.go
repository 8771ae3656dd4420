package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// Product is a single catalog entry. Price is exact decimal; quantity is the
// on-hand stock decremented atomically during checkout.
type Product struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Quantity    int                   `gorm:"column:quantity;not null;default:0"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null;index"`
	IsArchived  bool                  `gorm:"column:is_archived;not null;default:false"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
