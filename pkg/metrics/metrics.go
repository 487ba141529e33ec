package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// storeQueryDuration tracks how long the store lock is held per statement.
	storeQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tabstat_store_query_duration_seconds",
		Help:    "Analytic store statement duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~8s
	}, []string{"op"})

	// storeQueryErrors counts failed statements by operation kind.
	storeQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabstat_store_query_errors_total",
		Help: "Total failed analytic store statements",
	}, []string{"op"})

	// ingestsTotal counts dataset ingests by outcome.
	ingestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabstat_ingests_total",
		Help: "Total dataset ingests by outcome",
	}, []string{"outcome"})

	// ingestRows tracks rows materialized per successful ingest.
	ingestRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tabstat_ingest_rows",
		Help:    "Rows materialized per successful ingest",
		Buckets: prometheus.ExponentialBuckets(100, 10, 7), // 100 to 100M
	})
)

// ObserveStoreQuery records one store statement.
func ObserveStoreQuery(op string, d time.Duration, err error) {
	storeQueryDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		storeQueryErrors.WithLabelValues(op).Inc()
	}
}

// ObserveIngest records one ingest attempt.
func ObserveIngest(nRows int64, err error) {
	if err != nil {
		ingestsTotal.WithLabelValues("error").Inc()
		return
	}
	ingestsTotal.WithLabelValues("ok").Inc()
	ingestRows.Observe(float64(nRows))
}
