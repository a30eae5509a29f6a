package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PipelineState is a stage of one manifest run
type PipelineState string

const (
	StateCollecting PipelineState = "collecting"
	StateBuilt      PipelineState = "built"
	StateDone       PipelineState = "done"
	StateSubmitted  PipelineState = "submitted"
	StateReconciled PipelineState = "reconciled"
	StateClosed     PipelineState = "closed"
)

var pipelineTransitions = map[PipelineState][]PipelineState{
	StateCollecting: {StateBuilt},
	StateBuilt:      {StateDone, StateSubmitted},
	StateSubmitted:  {StateReconciled},
	StateReconciled: {StateClosed},
}

// CanTransitionTo reports whether next directly follows s
func (s PipelineState) CanTransitionTo(next PipelineState) bool {
	for _, allowed := range pipelineTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ManifestConfig is read once at process start
type ManifestConfig struct {
	Pickup         manifest.PickupLocation
	DryRun         bool
	GatewayTimeout time.Duration
	IdempotencyTTL time.Duration
}

const idempotencyKeyPrefix = "manifest:"

// ManifestService drives orders through build, submit and reconcile
type ManifestService struct {
	orderRepo   manifest.OrderRepository
	txScope     TransactionScope
	gateway     CarrierGateway
	builder     *manifest.ShipmentBuilder
	cfg         ManifestConfig
	archive     PayloadArchive
	idempotency shared.IdempotencyStore
	metrics     PipelineMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// ManifestOption configures a ManifestService
type ManifestOption func(*ManifestService)

// WithArchive copies every request and response to object storage
func WithArchive(archive PayloadArchive) ManifestOption {
	return func(s *ManifestService) {
		s.archive = archive
	}
}

// WithIdempotencyStore rejects replays of a submission key
func WithIdempotencyStore(store shared.IdempotencyStore) ManifestOption {
	return func(s *ManifestService) {
		s.idempotency = store
	}
}

// WithMetrics sets the pipeline metrics sink
func WithMetrics(metrics PipelineMetrics) ManifestOption {
	return func(s *ManifestService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) ManifestOption {
	return func(s *ManifestService) {
		s.now = now
	}
}

// NewManifestService creates a new ManifestService
func NewManifestService(
	orderRepo manifest.OrderRepository,
	txScope TransactionScope,
	gateway CarrierGateway,
	builder *manifest.ShipmentBuilder,
	cfg ManifestConfig,
	logger *zap.Logger,
	opts ...ManifestOption,
) *ManifestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	s := &ManifestService{
		orderRepo: orderRepo,
		txScope:   txScope,
		gateway:   gateway,
		builder:   builder,
		cfg:       cfg,
		metrics:   NopMetrics(),
		logger:    logger.Named("manifest"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pipelineRun tracks the state of one run
type pipelineRun struct {
	state  PipelineState
	span   trace.Span
	logger *zap.Logger
}

func (s *ManifestService) startRun(span trace.Span) *pipelineRun {
	return &pipelineRun{state: StateCollecting, span: span, logger: s.logger}
}

func (r *pipelineRun) advance(next PipelineState, fields ...zap.Field) error {
	if !r.state.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Pipeline cannot move from %s to %s", r.state, next))
	}
	r.logger.Debug("[MANIFEST] stage",
		append([]zap.Field{zap.String("from", string(r.state)), zap.String("to", string(next))}, fields...)...)
	telemetry.AddEvent(r.span, "pipeline."+string(next))
	r.state = next
	return nil
}

// BuildPayload runs the collecting and built stages. Unknown identifiers are
// skipped; an empty selection is invalid input.
func (s *ManifestService) BuildPayload(ctx context.Context, saleOrderNumbers []string) (*manifest.Payload, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "manifest", "build_payload")
	defer span.End()

	payload, err := s.collect(ctx, s.startRun(span), saleOrderNumbers)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return payload, nil
}

func (s *ManifestService) collect(ctx context.Context, run *pipelineRun, saleOrderNumbers []string) (*manifest.Payload, error) {
	ids := make([]string, 0, len(saleOrderNumbers))
	for _, id := range saleOrderNumbers {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, shared.NewDomainError("EMPTY_SELECTION", "Provide 'sale_order_numbers' as a non-empty list")
	}

	payload := &manifest.Payload{
		Shipments:      make([]manifest.Shipment, 0, len(ids)),
		PickupLocation: s.cfg.Pickup,
	}
	for _, id := range ids {
		order, err := s.orderRepo.FindBySaleOrderNumber(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("Skipping unknown order", zap.String("sale_order_number", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load order %s: %w", id, err)
		}

		record := order.ShipmentRecord()
		if p, ok := record.Lookup(manifest.KeysPayment...); ok && !manifest.PaymentModeKnown(p) {
			s.logger.Warn("Unrecognized payment mode, classifying as Prepaid",
				zap.String("sale_order_number", id),
				zap.String("payment_mode", p),
			)
		}
		payload.Shipments = append(payload.Shipments, s.builder.Build(record))
	}

	if err := run.advance(StateBuilt, zap.Int("requested", len(ids)), zap.Int("shipments", len(payload.Shipments))); err != nil {
		return nil, err
	}
	s.logger.Info("[BUILD_MANIFEST] Built payload",
		zap.Int("requested", len(ids)),
		zap.Int("shipments", len(payload.Shipments)),
	)
	return payload, nil
}

// Manifest builds the payload for the selected orders, submits it and
// reconciles the carrier response. In dry-run mode nothing is persisted.
func (s *ManifestService) Manifest(ctx context.Context, req ManifestRequest) (*ManifestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "manifest", "submit")
	defer span.End()
	run := s.startRun(span)

	payload, err := s.collect(ctx, run, req.SaleOrderNumbers)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// both modes refuse a selection with no stored orders
	if len(payload.Shipments) == 0 {
		return nil, shared.NewDomainError("NO_MATCHING_ORDERS", "None of the selected orders exist")
	}
	if s.cfg.DryRun {
		return s.dryRun(run, payload, len(payload.Shipments))
	}

	entries := make([]shipmentEntry, 0, len(payload.Shipments))
	for _, shp := range payload.Shipments {
		entries = append(entries, shipmentEntry{orderRef: shp.Order, body: shp})
	}
	result, err := s.submit(ctx, run, submission{
		idempotencyKey: req.IdempotencyKey,
		pickupName:     payload.PickupLocation.Name,
		request:        payload,
		entries:        entries,
		send: func(ctx context.Context) (map[string]any, error) {
			return s.gateway.Submit(ctx, payload)
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return result, err
}

// SubmitRaw forwards a caller-built carrier payload through the same ledger
// and reconciliation stages. Shipments are read from its "shipments" list.
func (s *ManifestService) SubmitRaw(ctx context.Context, payload map[string]any, idempotencyKey string) (*ManifestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "manifest", "submit_raw")
	defer span.End()
	run := s.startRun(span)

	shipments, _ := payload["shipments"].([]any)
	entries := make([]shipmentEntry, 0, len(shipments))
	for _, raw := range shipments {
		shp, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, shipmentEntry{orderRef: manifest.OrderRef(shp), body: shp})
	}
	if err := run.advance(StateBuilt, zap.Int("shipments", len(shipments))); err != nil {
		return nil, err
	}

	if s.cfg.DryRun {
		return s.dryRun(run, payload, len(shipments))
	}

	pickupName := ""
	if pickup, ok := payload["pickup_location"].(map[string]any); ok {
		pickupName, _ = pickup["name"].(string)
	}

	result, err := s.submit(ctx, run, submission{
		idempotencyKey: idempotencyKey,
		pickupName:     pickupName,
		request:        payload,
		count:          len(shipments),
		entries:        entries,
		send: func(ctx context.Context) (map[string]any, error) {
			return s.gateway.SubmitRaw(ctx, payload)
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return result, err
}

func (s *ManifestService) dryRun(run *pipelineRun, payload any, shipments int) (*ManifestResult, error) {
	if err := run.advance(StateDone); err != nil {
		return nil, err
	}
	s.metrics.ObserveBatch(BatchOutcomeDryRun)
	s.logger.Info("[MANIFEST][DRY_RUN] Skipping carrier call", zap.Int("shipments", shipments))
	return &ManifestResult{DryRun: true, Payload: payload}, nil
}

type shipmentEntry struct {
	orderRef string
	body     any
}

type submission struct {
	idempotencyKey string
	pickupName     string
	request        any
	// count overrides len(entries) for the batch size
	count   int
	entries []shipmentEntry
	send    func(ctx context.Context) (map[string]any, error)
}

func (s *ManifestService) submit(ctx context.Context, run *pipelineRun, sub submission) (*ManifestResult, error) {
	if err := s.claim(ctx, sub.idempotencyKey); err != nil {
		return nil, err
	}
	if err := run.advance(StateSubmitted); err != nil {
		return nil, err
	}

	count := sub.count
	if count == 0 {
		count = len(sub.entries)
	}

	var batch *manifest.Batch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.LedgerRepo().OpenBatch(ctx, sub.pickupName, count)
		if err != nil {
			return err
		}
		reqLog, err := manifest.NewRequestLog(b.ID, manifest.OperationCreate, sub.request)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendLog(ctx, reqLog); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		s.release(ctx, sub.idempotencyKey)
		return nil, fmt.Errorf("open batch: %w", err)
	}

	logger := s.logger.With(zap.String("batch_id", batch.ID.String()))
	run.logger = logger
	telemetry.SetAttributes(run.span,
		telemetry.SpanAttrBatchID, batch.ID.String(),
		telemetry.SpanAttrShipmentCount, count,
	)
	logger.Info("[MANIFEST] Submitting to carrier", zap.Int("shipments", count))
	logger.Debug("[MANIFEST] Request payload", zap.Any("payload", redactForLog(sub.request)))
	s.archiveBody(ctx, logger, batch.ID, "request.json", sub.request)
	s.metrics.ObserveShipments(count)

	callCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}
	resp, err := sub.send(callCtx)
	if err != nil {
		s.metrics.ObserveGatewayFailure()
		s.metrics.ObserveBatch(BatchOutcomeFailed)
		s.release(ctx, sub.idempotencyKey)
		logger.Error("[MANIFEST] Carrier call failed, batch left pending", zap.Error(err))
		return nil, upstreamError(err)
	}

	logger.Debug("[MANIFEST] Carrier response", zap.Any("response", manifest.Redact(resp)))
	s.archiveBody(ctx, logger, batch.ID, "response.json", resp)

	if err := run.advance(StateReconciled); err != nil {
		return nil, err
	}
	mapping := manifest.ExtractWaybills(resp)

	live := make([]shipmentEntry, 0, len(sub.entries))
	refs := make([]string, 0, len(sub.entries))
	for _, e := range sub.entries {
		ref := strings.TrimSpace(e.orderRef)
		if ref == "" {
			continue
		}
		live = append(live, shipmentEntry{orderRef: ref, body: e.body})
		refs = append(refs, ref)
	}
	assignments := manifest.Reconcile(mapping, refs)

	now := s.now()
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		respLog, err := manifest.NewResponseLog(batch.ID, manifest.OperationCreate, resp)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendLog(ctx, respLog); err != nil {
			return err
		}
		for i, a := range assignments {
			entry, err := manifest.NewAssignmentLog(batch.ID, manifest.OperationCreate, a.OrderID, live[i].body, a.Waybill)
			if err != nil {
				return err
			}
			if err := repos.LedgerRepo().AppendLog(ctx, entry); err != nil {
				return err
			}
			if !a.Assigned() {
				continue
			}
			order, err := repos.OrderRepo().FindBySaleOrderNumber(ctx, a.OrderID)
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			order.AssignWaybill(*a.Waybill, now)
			if err := repos.OrderRepo().Save(ctx, order); err != nil {
				return err
			}
		}
		return repos.LedgerRepo().CloseBatch(ctx, batch.ID, manifest.BatchStatusCompleted)
	})
	if err != nil {
		s.metrics.ObserveBatch(BatchOutcomeFailed)
		logger.Error("[MANIFEST] Reconciliation not persisted, batch left pending", zap.Error(err))
		return nil, fmt.Errorf("reconcile batch %s: %w", batch.ID, err)
	}

	result := &ManifestResult{
		BatchID:     &batch.ID,
		Response:    resp,
		Assignments: make([]AssignmentView, 0, len(assignments)),
	}
	for _, a := range assignments {
		result.Assignments = append(result.Assignments, AssignmentView{SaleOrderNumber: a.OrderID, Waybill: a.Waybill})
		if a.Assigned() {
			result.Assigned++
		} else {
			result.Unassigned++
		}
	}

	if err := run.advance(StateClosed, zap.Int("assigned", result.Assigned), zap.Int("unassigned", result.Unassigned)); err != nil {
		return nil, err
	}
	s.metrics.ObserveReconciliation(result.Assigned, result.Unassigned)
	s.metrics.ObserveBatch(BatchOutcomeCompleted)
	logger.Info("[MANIFEST] Batch completed",
		zap.Int("assigned", result.Assigned),
		zap.Int("unassigned", result.Unassigned),
	)
	return result, nil
}

func (s *ManifestService) claim(ctx context.Context, key string) error {
	if s.idempotency == nil || key == "" {
		return nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, idempotencyKeyPrefix+key, s.cfg.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	if !fresh {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Submission %q was already processed", key))
	}
	return nil
}

// release forgets a key whose submission never reached the carrier so the
// caller can retry with it.
func (s *ManifestService) release(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, idempotencyKeyPrefix+key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *ManifestService) archiveBody(ctx context.Context, logger *zap.Logger, batchID uuid.UUID, name string, body any) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(body)
	if err == nil {
		err = s.archive.ArchiveBatchPayload(ctx, batchID, name, data)
	}
	if err != nil {
		logger.Warn("Failed to archive batch payload", zap.String("object", name), zap.Error(err))
	}
}

func redactForLog(v any) any {
	if m, ok := v.(map[string]any); ok {
		return manifest.Redact(m)
	}
	return v
}

// upstreamError keeps the gateway error in the chain for errors.Is while
// exposing an UPSTREAM_ERROR domain error to the HTTP layer. The carrier
// detail appears once, after the fixed domain message.
func upstreamError(err error) error {
	return fmt.Errorf("%w: %w", shared.NewDomainError("UPSTREAM_ERROR", "Carrier request failed"), err)
}
