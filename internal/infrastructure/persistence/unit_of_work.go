package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
)

type txContextKey struct{}

// GormUnitOfWork implements billing.UnitOfWork by carrying a gorm
// transaction in the context. Repositories pick it up through session, so
// every call made with the derived context commits or rolls back together.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside one database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

var _ billing.UnitOfWork = (*GormUnitOfWork)(nil)

// session returns the transaction carried by the context, falling back to
// the base connection outside a unit of work
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
