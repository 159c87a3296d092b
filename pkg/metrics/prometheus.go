// pkg/metrics/prometheus.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcome labels.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// Collector tracks ledger operation counts, latencies and per-account cash
// balances on a private Prometheus registry.
type Collector struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration prometheus.Histogram
	cashBalance       *prometheus.GaugeVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by type and outcome",
		}, []string{"operation", "status"}),
		operationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time taken to execute a ledger operation",
			Buckets: prometheus.DefBuckets,
		}),
		cashBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_account_cash_balance",
			Help: "Current cash balance per account",
		}, []string{"username"}),
	}
}

// RecordOperation counts one operation and observes its duration.
func (c *Collector) RecordOperation(operation, status string, duration time.Duration) {
	c.operations.WithLabelValues(operation, status).Inc()
	c.operationDuration.Observe(duration.Seconds())
}

// SetCashBalance updates the balance gauge for an account.
func (c *Collector) SetCashBalance(username string, balance float64) {
	c.cashBalance.WithLabelValues(username).Set(balance)
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
