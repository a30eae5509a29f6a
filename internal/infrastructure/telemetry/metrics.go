package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the manifest pipeline.
// It is served on a private registry so tests can build as many as they need.
type Metrics struct {
	reg *prometheus.Registry

	Batches          *prometheus.CounterVec
	Shipments        prometheus.Counter
	WaybillsAssigned prometheus.Counter
	WaybillsMissing  prometheus.Counter
	GatewayFailures  prometheus.Counter
	OrdersImported   *prometheus.CounterVec
	GatewayLatency   prometheus.Histogram
	PendingBatches   prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manifest_batches_total",
			Help: "Manifest batches by outcome",
		}, []string{"status"}),
		Shipments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manifest_shipments_total",
			Help: "Shipments submitted to the carrier",
		}),
		WaybillsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manifest_waybills_assigned_total",
			Help: "Orders that received a waybill",
		}),
		WaybillsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manifest_waybills_missing_total",
			Help: "Submitted orders the carrier response did not assign",
		}),
		GatewayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manifest_gateway_failures_total",
			Help: "Carrier requests that failed or were rejected",
		}),
		OrdersImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_imported_total",
			Help: "Imported order rows by result",
		}, []string{"result"}),
		GatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "manifest_gateway_request_seconds",
			Help:    "Carrier request latency",
			Buckets: prometheus.DefBuckets,
		}),
		PendingBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "manifest_pending_batches",
			Help: "Batches left pending past the configured age",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Served HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		m.Batches, m.Shipments, m.WaybillsAssigned, m.WaybillsMissing,
		m.GatewayFailures, m.OrdersImported, m.GatewayLatency, m.PendingBatches,
		m.HTTPRequests, m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveBatch(status string) { m.Batches.WithLabelValues(status).Inc() }

func (m *Metrics) ObserveShipments(n int) { m.Shipments.Add(float64(n)) }

func (m *Metrics) ObserveReconciliation(assigned, missing int) {
	m.WaybillsAssigned.Add(float64(assigned))
	m.WaybillsMissing.Add(float64(missing))
}

func (m *Metrics) ObserveGatewayFailure() { m.GatewayFailures.Inc() }

func (m *Metrics) ObserveImport(result string, n int) {
	if n <= 0 {
		return
	}
	m.OrdersImported.WithLabelValues(result).Add(float64(n))
}

// ObserveGatewayLatency records one carrier round trip in seconds.
func (m *Metrics) ObserveGatewayLatency(seconds float64) { m.GatewayLatency.Observe(seconds) }

// ObservePendingBatches sets the number of stuck pending batches
func (m *Metrics) ObservePendingBatches(n int) { m.PendingBatches.Set(float64(n)) }

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
