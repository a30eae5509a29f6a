package manifest

import (
	"context"

	"github.com/manifest/backend/internal/domain/manifest"
)

// TransactionScope runs a pipeline stage atomically. A batch is never
// persisted without its request log, and reconciliation writes commit
// together with the batch close.
type TransactionScope interface {
	// Execute runs fn within a database transaction, rolling back on error
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction
type TransactionalRepositories interface {
	OrderRepo() manifest.OrderRepository
	LedgerRepo() manifest.LedgerRepository
}

// NoOpTransactionScope runs stages without a transaction. Used in tests.
type NoOpTransactionScope struct {
	orderRepo  manifest.OrderRepository
	ledgerRepo manifest.LedgerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(orderRepo manifest.OrderRepository, ledgerRepo manifest.LedgerRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{orderRepo: orderRepo, ledgerRepo: ledgerRepo}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() manifest.OrderRepository {
	return s.orderRepo
}

// LedgerRepo returns the ledger repository
func (s *NoOpTransactionScope) LedgerRepo() manifest.LedgerRepository {
	return s.ledgerRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
