// Package metrics holds the Prometheus collectors of the storefront.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "storefront"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Order metrics
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_orders_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"result"},
	)

	// Inventory metrics
	StockDecrementsClamped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_stock_decrements_clamped_total",
			Help: "Stock decrements where the clamp at zero absorbed an oversell",
		},
	)

	OutboxEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_outbox_entries",
			Help: "Outbox entries waiting to reach the store, by status",
		},
		[]string{"status"},
	)

	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_outbox_deliveries_total",
			Help: "Outbox delivery attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_gateway_operation_duration_seconds",
			Help:    "Duration of Store Gateway operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Admin event stream
	SSEDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_sse_events_dropped_total",
			Help: "Events dropped because an admin stream client fell behind",
		},
	)

	// Import metrics
	ImportProducts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_import_products_total",
			Help: "Products processed by bulk import by result",
		},
		[]string{"result"},
	)
)

// RecordOrder counts a checkout by result: placed, placed_sync_delayed or failed.
func RecordOrder(result string) {
	OrdersTotal.WithLabelValues(result).Inc()
}

// RecordOversell counts a clamped decrement.
func RecordOversell() {
	StockDecrementsClamped.Inc()
}

// SetOutboxDepth updates the outbox gauges.
func SetOutboxDepth(pending, failed int) {
	OutboxEntries.WithLabelValues("pending").Set(float64(pending))
	OutboxEntries.WithLabelValues("failed").Set(float64(failed))
}

// RecordDelivery counts one outbox delivery attempt.
func RecordDelivery(kind, result string) {
	OutboxDeliveries.WithLabelValues(kind, result).Inc()
}

// TrackGateway returns a function that records the duration of a gateway call.
func TrackGateway(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		GatewayDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordImport counts imported products by result: created or failed.
func RecordImport(result string, n int) {
	ImportProducts.WithLabelValues(result).Add(float64(n))
}

// RecordSSEDrop counts an event a slow stream client did not receive.
func RecordSSEDrop() {
	SSEDropped.Inc()
}
