package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// Profile carries the role assignment for a user. Exactly one per user.
type Profile struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'staff'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
