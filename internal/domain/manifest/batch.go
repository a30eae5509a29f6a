package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/shared"
)

// BatchStatus is pending until reconciliation has run
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusCompleted BatchStatus = "completed"
)

// Operation is the kind of carrier exchange a log row records
type Operation string

const (
	OperationCreate Operation = "create"
	OperationEdit   Operation = "edit"
	OperationCancel Operation = "cancel"
	OperationTrack  Operation = "track"
)

// Batch is one manifest submission attempt
type Batch struct {
	ID                 uuid.UUID
	CreatedAt          time.Time
	PickupLocationName string
	TotalCount         int
	Status             BatchStatus
}

// NewBatch creates a pending batch
func NewBatch(pickupLocationName string, totalCount int) *Batch {
	return &Batch{
		ID:                 uuid.New(),
		CreatedAt:          time.Now(),
		PickupLocationName: pickupLocationName,
		TotalCount:         totalCount,
		Status:             BatchStatusPending,
	}
}

// Complete moves a pending batch to completed. There is no way back.
func (b *Batch) Complete() error {
	if b.Status != BatchStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Batch %s is already %s", b.ID, b.Status))
	}
	b.Status = BatchStatusCompleted
	return nil
}

// Log is one immutable audit row. Request and response bodies are raw JSON;
// nil means the side was not part of this row.
type Log struct {
	ID              uuid.UUID
	Seq             int64
	CreatedAt       time.Time
	BatchID         *uuid.UUID
	SaleOrderNumber string
	Operation       Operation
	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
	Waybill         *string
}

func newLog(batchID uuid.UUID, op Operation) *Log {
	return &Log{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		BatchID:   &batchID,
		Operation: op,
	}
}

// NewRequestLog records the aggregate request body of a batch
func NewRequestLog(batchID uuid.UUID, op Operation, request any) (*Log, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request payload: %w", err)
	}
	l := newLog(batchID, op)
	l.RequestPayload = body
	return l, nil
}

// NewResponseLog records the aggregate response body of a batch
func NewResponseLog(batchID uuid.UUID, op Operation, response any) (*Log, error) {
	body, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encode response payload: %w", err)
	}
	l := newLog(batchID, op)
	l.ResponsePayload = body
	return l, nil
}

// NewAssignmentLog records the outcome for one shipment. waybill is nil when
// the carrier response did not name the order.
func NewAssignmentLog(batchID uuid.UUID, op Operation, saleOrderNumber string, shipment any, waybill *string) (*Log, error) {
	body, err := json.Marshal(shipment)
	if err != nil {
		return nil, fmt.Errorf("encode shipment for %s: %w", saleOrderNumber, err)
	}
	l := newLog(batchID, op)
	l.SaleOrderNumber = saleOrderNumber
	l.RequestPayload = body
	l.Waybill = waybill
	return l, nil
}

// NewExchangeLog records a carrier call made outside any batch, such as an
// edit, cancellation or tracking lookup. response is nil when the call failed.
func NewExchangeLog(op Operation, saleOrderNumber string, waybill string, request, response any) (*Log, error) {
	l := &Log{
		ID:              uuid.New(),
		CreatedAt:       time.Now(),
		SaleOrderNumber: saleOrderNumber,
		Operation:       op,
	}
	if waybill != "" {
		l.Waybill = &waybill
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	l.RequestPayload = body
	if response != nil {
		if l.ResponsePayload, err = json.Marshal(response); err != nil {
			return nil, fmt.Errorf("encode %s response: %w", op, err)
		}
	}
	return l, nil
}

// LedgerRepository persists batches and their logs
type LedgerRepository interface {
	// OpenBatch persists a new pending batch
	OpenBatch(ctx context.Context, pickupLocationName string, totalCount int) (*Batch, error)

	// AppendLog inserts a log row. Rows are never updated.
	AppendLog(ctx context.Context, log *Log) error

	// CloseBatch moves a pending batch to status
	CloseBatch(ctx context.Context, batchID uuid.UUID, status BatchStatus) error

	FindBatch(ctx context.Context, batchID uuid.UUID) (*Batch, error)

	// ListLogs returns the logs of a batch in insertion order
	ListLogs(ctx context.Context, batchID uuid.UUID) ([]*Log, error)

	// LastLog returns the newest log of an operation
	LastLog(ctx context.Context, op Operation) (*Log, error)

	// FindPendingBatches returns pending batches created before olderThan
	FindPendingBatches(ctx context.Context, olderThan time.Time) ([]*Batch, error)
}
