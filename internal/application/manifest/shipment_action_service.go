package manifest

import (
	"context"
	"strings"
	"time"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ShipmentActionConfig is read once at process start
type ShipmentActionConfig struct {
	DryRun         bool
	GatewayTimeout time.Duration
}

// ShipmentActionService edits, cancels and tracks shipments the carrier
// already holds. Every call that reaches the carrier leaves one ledger row
// outside any batch. Order state is not touched.
type ShipmentActionService struct {
	ledger  manifest.LedgerRepository
	gateway manifest.ShipmentGateway
	cfg     ShipmentActionConfig
	metrics PipelineMetrics
	logger  *zap.Logger
}

// NewShipmentActionService creates a new ShipmentActionService
func NewShipmentActionService(
	ledger manifest.LedgerRepository,
	gateway manifest.ShipmentGateway,
	cfg ShipmentActionConfig,
	metrics PipelineMetrics,
	logger *zap.Logger,
) *ShipmentActionService {
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentActionService{
		ledger:  ledger,
		gateway: gateway,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("shipment"),
	}
}

// ShipmentActionResult is the carrier response to an action. In dry-run mode
// Response is nil and Request echoes what would have been sent.
type ShipmentActionResult struct {
	Operation manifest.Operation `json:"operation"`
	Waybill   string             `json:"waybill"`
	DryRun    bool               `json:"dry_run"`
	Request   any                `json:"request,omitempty"`
	Response  map[string]any     `json:"response,omitempty"`
}

// Edit forwards updated shipment fields. details must carry a waybill.
func (s *ShipmentActionService) Edit(ctx context.Context, details map[string]any) (*ShipmentActionResult, error) {
	waybill, _ := details["waybill"].(string)
	waybill = strings.TrimSpace(waybill)
	if waybill == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Provide the shipment 'waybill' to edit")
	}
	return s.run(ctx, manifest.OperationEdit, waybill, manifest.OrderRef(details), details, true,
		func(ctx context.Context) (map[string]any, error) {
			return s.gateway.Edit(ctx, details)
		})
}

// Cancel cancels the shipment holding waybill
func (s *ShipmentActionService) Cancel(ctx context.Context, waybill string) (*ShipmentActionResult, error) {
	waybill = strings.TrimSpace(waybill)
	if waybill == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Provide the shipment 'waybill' to cancel")
	}
	request := map[string]any{"waybill": waybill, "cancellation": "true"}
	return s.run(ctx, manifest.OperationCancel, waybill, "", request, true,
		func(ctx context.Context) (map[string]any, error) {
			return s.gateway.Cancel(ctx, waybill)
		})
}

// Track looks up the carrier status of waybill. It only reads, so dry-run
// mode still calls the carrier.
func (s *ShipmentActionService) Track(ctx context.Context, waybill string) (*ShipmentActionResult, error) {
	waybill = strings.TrimSpace(waybill)
	if waybill == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Provide the shipment 'waybill' to track")
	}
	request := map[string]any{"waybill": waybill}
	return s.run(ctx, manifest.OperationTrack, waybill, "", request, false,
		func(ctx context.Context) (map[string]any, error) {
			return s.gateway.Track(ctx, waybill)
		})
}

func (s *ShipmentActionService) run(
	ctx context.Context,
	op manifest.Operation,
	waybill, saleOrderNumber string,
	request any,
	mutating bool,
	call func(ctx context.Context) (map[string]any, error),
) (*ShipmentActionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", string(op))
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrWaybill, waybill)

	logger := s.logger.With(zap.String("operation", string(op)), zap.String("waybill", waybill))
	result := &ShipmentActionResult{Operation: op, Waybill: waybill}

	if mutating && s.cfg.DryRun {
		logger.Info("[SHIPMENT][DRY_RUN] Skipping carrier call")
		result.DryRun = true
		result.Request = request
		return result, nil
	}

	callCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}
	resp, callErr := call(callCtx)

	// a ledger failure never fails an action the carrier may have applied
	var response any
	if resp != nil {
		response = resp
	}
	entry, err := manifest.NewExchangeLog(op, saleOrderNumber, waybill, request, response)
	if err == nil {
		err = s.ledger.AppendLog(ctx, entry)
	}
	if err != nil {
		logger.Error("[SHIPMENT] Failed to record carrier exchange", zap.Error(err))
	}

	if callErr != nil {
		s.metrics.ObserveGatewayFailure()
		logger.Error("[SHIPMENT] Carrier call failed", zap.Error(callErr))
		telemetry.RecordError(span, callErr)
		return nil, upstreamError(callErr)
	}

	logger.Info("[SHIPMENT] Carrier call completed")
	logger.Debug("[SHIPMENT] Carrier response", zap.Any("response", manifest.Redact(resp)))
	result.Response = resp
	return result, nil
}
