package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ImportService upserts imported rows into the order store
type ImportService struct {
	orderRepo manifest.OrderRepository
	metrics   PipelineMetrics
	logger    *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(orderRepo manifest.OrderRepository, metrics PipelineMetrics, logger *zap.Logger) *ImportService {
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		orderRepo: orderRepo,
		metrics:   metrics,
		logger:    logger,
	}
}

// Upsert creates or updates the order a record identifies. A record without
// a resolvable identifier is a no-op: it returns a nil order and no error.
func (s *ImportService) Upsert(ctx context.Context, record manifest.RawRecord) (*manifest.Order, bool, error) {
	id, ok := manifest.OrderIDFromRecord(record)
	if !ok {
		return nil, false, nil
	}

	order, created, err := s.upsertOnce(ctx, id, record)
	if errors.Is(err, shared.ErrAlreadyExists) && created {
		// A concurrent import created the row first; merge into it instead.
		order, created, err = s.upsertOnce(ctx, id, record)
	}
	if err != nil {
		return nil, false, fmt.Errorf("upsert order %s: %w", id, err)
	}
	return order, created, nil
}

func (s *ImportService) upsertOnce(ctx context.Context, id string, record manifest.RawRecord) (*manifest.Order, bool, error) {
	created := false
	order, err := s.orderRepo.FindBySaleOrderNumber(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, false, err
		}
		order, err = manifest.NewOrder(id)
		if err != nil {
			return nil, false, err
		}
		created = true
	}

	order.MergeRecord(record)
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, created, err
	}
	return order, created, nil
}

// ImportRows upserts loosely typed rows as received over the API.
// Rows that are not objects are counted as skipped.
func (s *ImportService) ImportRows(ctx context.Context, rows []any) (*ImportResult, error) {
	records := make([]manifest.RawRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		records = append(records, manifest.RawRecord(obj))
	}

	result, err := s.ImportRecords(ctx, records)
	if result != nil {
		result.Received = len(rows)
		result.Skipped += skipped
		s.metrics.ObserveImport(ImportSkipped, skipped)
	}
	return result, err
}

// ImportRecords upserts records in order and stops at the first storage error.
// The partial result is returned alongside the error.
func (s *ImportService) ImportRecords(ctx context.Context, records []manifest.RawRecord) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "import")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRowCount, len(records))

	result := &ImportResult{Received: len(records)}
	defer func() {
		s.metrics.ObserveImport(ImportCreated, result.Created)
		s.metrics.ObserveImport(ImportUpdated, result.Updated)
		s.metrics.ObserveImport(ImportSkipped, result.Skipped)
	}()

	for i, record := range records {
		order, created, err := s.Upsert(ctx, record)
		if err != nil {
			telemetry.RecordError(span, err)
			s.logger.Error("Order import aborted",
				zap.Int("row", i+1),
				zap.Int("created", result.Created),
				zap.Int("updated", result.Updated),
				zap.Error(err),
			)
			return result, err
		}
		switch {
		case order == nil:
			result.Skipped++
		case created:
			result.Created++
		default:
			result.Updated++
		}
	}

	s.logger.Info("Orders imported",
		zap.Int("received", result.Received),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// List returns listing rows, most recently created first
func (s *ImportService) List(ctx context.Context, filter manifest.OrderFilter) (*OrderListResult, error) {
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		items = append(items, o.ListingRow())
	}
	return &OrderListResult{Items: items, Count: len(items), Total: total}, nil
}

// FindByOrderID returns the structured view of one order
func (s *ImportService) FindByOrderID(ctx context.Context, saleOrderNumber string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindBySaleOrderNumber(ctx, strings.TrimSpace(saleOrderNumber))
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(order), nil
}
