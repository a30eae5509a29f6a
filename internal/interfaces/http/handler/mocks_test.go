package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/interfaces/http/middleware"
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

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// newTestRouter mounts r under /api/v1 the way the server does
func newTestRouter(r registrar) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(engine *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func storedOrder(id string, record manifest.RawRecord) *manifest.Order {
	o, _ := manifest.NewOrder(id)
	o.MergeRecord(record)
	return o
}
