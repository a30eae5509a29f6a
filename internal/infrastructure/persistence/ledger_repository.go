package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerRepository implements manifest.LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: tx}
}

// OpenBatch persists a new pending batch
func (r *GormLedgerRepository) OpenBatch(ctx context.Context, pickupLocationName string, totalCount int) (*manifest.Batch, error) {
	batch := manifest.NewBatch(pickupLocationName, totalCount)
	if err := r.db.WithContext(ctx).Create(models.ManifestBatchModelFromDomain(batch)).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// AppendLog inserts a log row and records its sequence number on log
func (r *GormLedgerRepository) AppendLog(ctx context.Context, log *manifest.Log) error {
	model := models.ManifestLogModelFromDomain(log)
	model.Seq = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	log.Seq = model.Seq
	return nil
}

// CloseBatch moves a pending batch to status. The WHERE clause makes the
// transition single-shot: closing a batch twice is INVALID_STATE.
func (r *GormLedgerRepository) CloseBatch(ctx context.Context, batchID uuid.UUID, status manifest.BatchStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.ManifestBatchModel{}).
		Where("id = ? AND status = ?", batchID, string(manifest.BatchStatusPending)).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindBatch(ctx, batchID); err != nil {
			return err
		}
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Batch %s is not pending", batchID))
	}
	return nil
}

// FindBatch finds a batch by id
func (r *GormLedgerRepository) FindBatch(ctx context.Context, batchID uuid.UUID) (*manifest.Batch, error) {
	var model models.ManifestBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListLogs returns the logs of a batch in insertion order
func (r *GormLedgerRepository) ListLogs(ctx context.Context, batchID uuid.UUID) ([]*manifest.Log, error) {
	var rows []models.ManifestLogModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	logs := make([]*manifest.Log, len(rows))
	for i := range rows {
		logs[i] = rows[i].ToDomain()
	}
	return logs, nil
}

// LastLog returns the newest log of an operation
func (r *GormLedgerRepository) LastLog(ctx context.Context, op manifest.Operation) (*manifest.Log, error) {
	var model models.ManifestLogModel
	if err := r.db.WithContext(ctx).
		Where("operation = ?", string(op)).
		Order("seq DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingBatches returns pending batches created before olderThan, oldest first
func (r *GormLedgerRepository) FindPendingBatches(ctx context.Context, olderThan time.Time) ([]*manifest.Batch, error) {
	var rows []models.ManifestBatchModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(manifest.BatchStatusPending), olderThan).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	batches := make([]*manifest.Batch, len(rows))
	for i := range rows {
		batches[i] = rows[i].ToDomain()
	}
	return batches, nil
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ manifest.LedgerRepository = (*GormLedgerRepository)(nil)
