package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/cache"
	"github.com/manifest/backend/internal/infrastructure/carrier"
	"github.com/manifest/backend/internal/infrastructure/persistence"
	"github.com/manifest/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// carrierStub answers every create call with a waybill for SO-1 only
type carrierStub struct {
	calls   atomic.Int32
	payload atomic.Value
}

func (c *carrierStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls.Add(1)
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))
	c.payload.Store(form.Get("data"))

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"success":true,"packages":[{"order":"SO-1","waybill":"WB-0001","status":"Success"}]}`))
}

type pipeline struct {
	db       *TestDB
	imports  *appmanifest.ImportService
	manifest *appmanifest.ManifestService
	ledger   *appmanifest.LedgerQueryService
	carrier  *carrierStub
	metrics  *telemetry.Metrics
}

func newPipeline(t *testing.T, tdb *TestDB, dryRun bool) *pipeline {
	t.Helper()

	stub := &carrierStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := carrier.NewClient(carrier.Config{Mode: carrier.ModeStaging, Token: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	metrics := telemetry.NewMetrics()
	orders := persistence.NewGormOrderRepository(tdb.DB)
	builder := manifest.NewShipmentBuilder(manifest.BuilderConfig{Compliance: manifest.DefaultComplianceBlock()})
	pickup := manifest.PickupLocation{Name: "Kolkata Hub", City: "Kolkata", Pin: "700107", Country: "India"}

	return &pipeline{
		db:      tdb,
		imports: appmanifest.NewImportService(orders, metrics, zap.NewNop()),
		manifest: appmanifest.NewManifestService(
			orders,
			persistence.NewGormTransactionScope(tdb.DB),
			client,
			builder,
			appmanifest.ManifestConfig{Pickup: pickup, DryRun: dryRun},
			zap.NewNop(),
			appmanifest.WithIdempotencyStore(store),
			appmanifest.WithMetrics(metrics),
		),
		ledger:  appmanifest.NewLedgerQueryService(persistence.NewGormLedgerRepository(tdb.DB)),
		carrier: stub,
		metrics: metrics,
	}
}

func (p *pipeline) seed(t *testing.T) {
	t.Helper()
	res, err := p.imports.ImportRows(context.Background(), []any{
		map[string]any{"Sale Order Number": "SO-1", "Customer Name": "Asha", "Payment Mode": "COD", "Total Price": "300", "Shipping Pincode": "700001"},
		map[string]any{"Sale Order Number": "SO-2", "Customer Name": "Ravi", "Payment Mode": "Prepaid", "Unit Item Price": "150", "Quantity Ordered": "2"},
		map[string]any{"Customer Name": "No id"},
		"not a row",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 2, res.Skipped)
}

func TestManifestPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()

	t.Run("import is idempotent on sale order number", func(t *testing.T) {
		tdb.CleanTables()
		p := newPipeline(t, tdb, false)
		p.seed(t)

		res, err := p.imports.ImportRows(ctx, []any{
			map[string]any{"Sale Order Number": "SO-1", "Customer Name": "", "Shipping City": "Kolkata"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Updated)
		assert.EqualValues(t, 2, tdb.Count("orders"))

		order, err := p.imports.FindByOrderID(ctx, "SO-1")
		require.NoError(t, err)
		assert.Equal(t, "Asha", order.CustomerName, "blank cells keep the stored value")
		assert.Equal(t, "Kolkata", order.ShippingCity)
		assert.NotContains(t, order.Raw, "Payment Mode", "raw mirrors the latest import")
	})

	t.Run("submit reconciles waybills and closes the batch", func(t *testing.T) {
		tdb.CleanTables()
		p := newPipeline(t, tdb, false)
		p.seed(t)

		result, err := p.manifest.Manifest(ctx, appmanifest.ManifestRequest{
			SaleOrderNumbers: []string{"SO-1", "SO-2", "SO-404"},
			IdempotencyKey:   "run-1",
		})
		require.NoError(t, err)
		require.NotNil(t, result.BatchID)
		assert.Equal(t, 1, result.Assigned)
		assert.Equal(t, 1, result.Unassigned)
		assert.EqualValues(t, 1, p.carrier.calls.Load())

		var sent manifest.Payload
		require.NoError(t, json.Unmarshal([]byte(p.carrier.payload.Load().(string)), &sent))
		assert.Equal(t, []string{"SO-1", "SO-2"}, sent.OrderRefs())
		assert.Equal(t, "Kolkata Hub", sent.PickupLocation.Name)

		so1, err := p.imports.FindByOrderID(ctx, "SO-1")
		require.NoError(t, err)
		require.NotNil(t, so1.Waybill)
		assert.Equal(t, "WB-0001", *so1.Waybill)
		assert.Equal(t, string(manifest.ManifestStatusManifested), so1.ManifestStatus)

		so2, err := p.imports.FindByOrderID(ctx, "SO-2")
		require.NoError(t, err)
		assert.Nil(t, so2.Waybill)

		logs, err := p.ledger.BatchLogs(ctx, *result.BatchID)
		require.NoError(t, err)
		assert.Equal(t, string(manifest.BatchStatusCompleted), logs.Batch.Status)
		assert.Equal(t, 2, logs.Batch.TotalCount)
		require.Len(t, logs.Logs, 4, "request, response and one row per shipment")
		assert.NotContains(t, string(logs.Logs[0].RequestPayload), "secret")

		last, err := p.ledger.LastManifestLog(ctx)
		require.NoError(t, err)
		assert.Equal(t, *result.BatchID, *last.BatchID)

		_, err = p.manifest.Manifest(ctx, appmanifest.ManifestRequest{
			SaleOrderNumbers: []string{"SO-1"},
			IdempotencyKey:   "run-1",
		})
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.EqualValues(t, 1, p.carrier.calls.Load())
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		tdb.CleanTables()
		p := newPipeline(t, tdb, true)
		p.seed(t)

		result, err := p.manifest.Manifest(ctx, appmanifest.ManifestRequest{SaleOrderNumbers: []string{"SO-1", "SO-2"}})
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.NotNil(t, result.Payload)
		assert.Zero(t, p.carrier.calls.Load())
		assert.Zero(t, tdb.Count("manifest_batches"))
		assert.Zero(t, tdb.Count("manifest_logs"))
	})

	t.Run("empty and unmatched selections", func(t *testing.T) {
		tdb.CleanTables()
		p := newPipeline(t, tdb, false)
		p.seed(t)

		_, err := p.manifest.Manifest(ctx, appmanifest.ManifestRequest{})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EMPTY_SELECTION", domainErr.Code)

		_, err = p.manifest.Manifest(ctx, appmanifest.ManifestRequest{SaleOrderNumbers: []string{"SO-404"}})
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_MATCHING_ORDERS", domainErr.Code)
		assert.Zero(t, tdb.Count("manifest_batches"))
	})
}
