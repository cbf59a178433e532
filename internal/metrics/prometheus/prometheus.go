package prometheus

import (
	"net/http"
	"time"

	"finance-ledger-go/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ metrics.Collector = (*PrometheusCollector)(nil)

// PrometheusCollector implements metrics.Collector for Prometheus.
type PrometheusCollector struct {
	registry *prometheus.Registry

	// Postings
	transactions       *prometheus.CounterVec
	transactionLatency *prometheus.HistogramVec
	retries            prometheus.Counter
	deletions          prometheus.Counter

	// Imports
	importRows    *prometheus.CounterVec
	importLatency prometheus.Histogram
}

// NewPrometheusCollector creates a collector registered on its own registry.
func NewPrometheusCollector(namespace string) (*PrometheusCollector, error) {
	pc := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Posting attempts by transaction type and outcome",
			},
			[]string{"txn_type", "outcome"},
		),
		transactionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Time to validate and post a transaction",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_retries_total",
			Help:      "Postings retried after a concurrent balance update",
		}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_deletions_total",
			Help:      "Transactions deleted with their balance effect reversed",
		}),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "CSV import rows by result",
			},
			[]string{"result"},
		),
		importLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Time to import one CSV file",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}

	registered := []prometheus.Collector{
		pc.transactions,
		pc.transactionLatency,
		pc.retries,
		pc.deletions,
		pc.importRows,
		pc.importLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, collector := range registered {
		if err := pc.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return pc, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (pc *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(pc.registry, promhttp.HandlerOpts{})
}

func (pc *PrometheusCollector) RecordTransaction(txnType, outcome string, duration time.Duration) {
	pc.transactions.WithLabelValues(txnType, outcome).Inc()
	pc.transactionLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordRetry() {
	pc.retries.Inc()
}

func (pc *PrometheusCollector) RecordDeletion() {
	pc.deletions.Inc()
}

func (pc *PrometheusCollector) RecordImport(created, skipped, invalid int, duration time.Duration) {
	pc.importRows.WithLabelValues("created").Add(float64(created))
	pc.importRows.WithLabelValues("skipped").Add(float64(skipped))
	pc.importRows.WithLabelValues("invalid").Add(float64(invalid))
	pc.importLatency.Observe(duration.Seconds())
}
