package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle the domain repositories share. It centralizes
// context binding and transaction rebinding so the concrete repositories only
// implement queries.
type Base struct {
	conn *gorm.DB
}

// NewBase wraps the provided GORM connection.
func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the handle bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Rebind returns a Base running on tx. A nil tx keeps the current handle, so
// callers can pass through whatever WithTx handed them.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}
