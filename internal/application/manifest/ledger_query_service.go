package manifest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
)

// DefaultPendingBatchAge is how long a batch may stay pending before it is
// reported as stuck
const DefaultPendingBatchAge = 15 * time.Minute

// LedgerQueryService answers read-only questions about the batch ledger
type LedgerQueryService struct {
	ledgerRepo manifest.LedgerRepository
	now        func() time.Time
}

// NewLedgerQueryService creates a new LedgerQueryService
func NewLedgerQueryService(ledgerRepo manifest.LedgerRepository) *LedgerQueryService {
	return &LedgerQueryService{ledgerRepo: ledgerRepo, now: time.Now}
}

// LastManifestLog returns the newest create log, or nil when there is none
func (s *LedgerQueryService) LastManifestLog(ctx context.Context) (*LogView, error) {
	l, err := s.ledgerRepo.LastLog(ctx, manifest.OperationCreate)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := ToLogView(l)
	return &view, nil
}

// BatchLogs returns a batch and its logs in insertion order
func (s *LedgerQueryService) BatchLogs(ctx context.Context, batchID uuid.UUID) (*BatchLogsResult, error) {
	batch, err := s.ledgerRepo.FindBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	logs, err := s.ledgerRepo.ListLogs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	views := make([]LogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, ToLogView(l))
	}
	return &BatchLogsResult{Batch: ToBatchView(batch), Logs: views, Count: len(views)}, nil
}

// PendingBatches lists batches still pending after olderThan. These are runs
// whose carrier call failed or whose reconciliation was not persisted; they
// need manual reconciliation.
func (s *LedgerQueryService) PendingBatches(ctx context.Context, olderThan time.Duration) ([]BatchView, error) {
	if olderThan < 0 {
		olderThan = 0
	}
	batches, err := s.ledgerRepo.FindPendingBatches(ctx, s.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	views := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, ToBatchView(b))
	}
	return views, nil
}
