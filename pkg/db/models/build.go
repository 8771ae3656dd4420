package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// Build is a user's PC configuration. A draft is created lazily on the first
// checkout attempt and transitions to checked_out exactly once.
type Build struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TotalPrice decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Status     enums.BuildStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	IsArchived bool              `gorm:"column:is_archived;not null;default:false"`
	Items      []BuildItem       `gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
