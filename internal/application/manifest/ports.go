package manifest

import (
	"context"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
)

// CarrierGateway is the carrier client as the pipeline sees it
type CarrierGateway interface {
	manifest.Gateway
	manifest.RawGateway
}

// PayloadArchive keeps a copy of each exchanged body outside the database
type PayloadArchive interface {
	ArchiveBatchPayload(ctx context.Context, batchID uuid.UUID, name string, body []byte) error
}

// PipelineMetrics receives pipeline counters
type PipelineMetrics interface {
	ObserveBatch(status string)
	ObserveShipments(n int)
	ObserveReconciliation(assigned, missing int)
	ObserveGatewayFailure()
	ObserveImport(result string, n int)
}

// Batch outcome labels
const (
	BatchOutcomeCompleted = "completed"
	BatchOutcomeFailed    = "failed"
	BatchOutcomeDryRun    = "dry_run"
)

// Import outcome labels
const (
	ImportCreated = "created"
	ImportUpdated = "updated"
	ImportSkipped = "skipped"
)

type nopMetrics struct{}

func (nopMetrics) ObserveBatch(string) {}
func (nopMetrics) ObserveShipments(int) {}
func (nopMetrics) ObserveReconciliation(int, int) {}
func (nopMetrics) ObserveGatewayFailure() {}
func (nopMetrics) ObserveImport(string, int) {}

// NopMetrics discards every observation
func NopMetrics() PipelineMetrics {
	return nopMetrics{}
}
