package manifest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindBySaleOrderNumber(ctx context.Context, saleOrderNumber string) (*manifest.Order, error) {
	args := m.Called(ctx, saleOrderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manifest.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter manifest.OrderFilter) ([]*manifest.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*manifest.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *manifest.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) OpenBatch(ctx context.Context, pickupLocationName string, totalCount int) (*manifest.Batch, error) {
	args := m.Called(ctx, pickupLocationName, totalCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manifest.Batch), args.Error(1)
}

func (m *MockLedgerRepository) AppendLog(ctx context.Context, log *manifest.Log) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockLedgerRepository) CloseBatch(ctx context.Context, batchID uuid.UUID, status manifest.BatchStatus) error {
	args := m.Called(ctx, batchID, status)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindBatch(ctx context.Context, batchID uuid.UUID) (*manifest.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manifest.Batch), args.Error(1)
}

func (m *MockLedgerRepository) ListLogs(ctx context.Context, batchID uuid.UUID) ([]*manifest.Log, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]*manifest.Log), args.Error(1)
}

func (m *MockLedgerRepository) LastLog(ctx context.Context, op manifest.Operation) (*manifest.Log, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manifest.Log), args.Error(1)
}

func (m *MockLedgerRepository) FindPendingBatches(ctx context.Context, olderThan time.Time) ([]*manifest.Batch, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).([]*manifest.Batch), args.Error(1)
}

// MockGateway is a mock implementation of CarrierGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Submit(ctx context.Context, payload *manifest.Payload) (map[string]any, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockGateway) SubmitRaw(ctx context.Context, payload map[string]any) (map[string]any, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// MockArchive is a mock implementation of PayloadArchive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) ArchiveBatchPayload(ctx context.Context, batchID uuid.UUID, name string, body []byte) error {
	args := m.Called(ctx, batchID, name, body)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// recordingMetrics counts observations
type recordingMetrics struct {
	batches         map[string]int
	shipments       int
	assigned        int
	missing         int
	gatewayFailures int
	imports         map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{batches: map[string]int{}, imports: map[string]int{}}
}

func (r *recordingMetrics) ObserveBatch(status string) { r.batches[status]++ }
func (r *recordingMetrics) ObserveShipments(n int)     { r.shipments += n }
func (r *recordingMetrics) ObserveReconciliation(assigned, missing int) {
	r.assigned += assigned
	r.missing += missing
}
func (r *recordingMetrics) ObserveGatewayFailure()             { r.gatewayFailures++ }
func (r *recordingMetrics) ObserveImport(result string, n int) { r.imports[result] += n }

// MockShipmentGateway is a mock implementation of manifest.ShipmentGateway
type MockShipmentGateway struct {
	mock.Mock
}

func (m *MockShipmentGateway) Edit(ctx context.Context, details map[string]any) (map[string]any, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockShipmentGateway) Cancel(ctx context.Context, waybill string) (map[string]any, error) {
	args := m.Called(ctx, waybill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockShipmentGateway) Track(ctx context.Context, waybill string) (map[string]any, error) {
	args := m.Called(ctx, waybill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}
