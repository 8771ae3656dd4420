package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// AuditLog records a security-relevant event. Append-only: no update or
// delete path exists anywhere in the codebase.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	User       *User             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Action     enums.AuditAction `gorm:"column:action;type:text;not null;index"`
	Status     enums.AuditStatus `gorm:"column:status;type:text;not null"`
	Identifier string            `gorm:"column:identifier;not null;default:''"`
	IPAddress  string            `gorm:"column:ip_address;not null;default:''"`
	Metadata   json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_audit_logs_created_at,sort:desc"`
}
