package persistence

import (
	"context"

	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/domain/manifest"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn rolls the
// transaction back; otherwise it commits.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appmanifest.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) OrderRepo() manifest.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) LedgerRepo() manifest.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

var (
	_ appmanifest.TransactionScope          = (*GormTransactionScope)(nil)
	_ appmanifest.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
