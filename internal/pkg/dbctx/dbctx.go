// Package dbctx carries the cancellation context and database handle
// repositories operate on. Services choose the transaction scope; repos
// never open their own.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context is the first argument of every repository method. Tx may be a
// plain *gorm.DB or an open transaction; repos treat both the same.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
