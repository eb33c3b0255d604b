package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the retrieval metrics. It is written out once per run for
// the node_exporter textfile collector.
var Registry = prometheus.NewRegistry()

var (
	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsteal_retrievals_total",
			Help: "Total file retrievals by outcome",
		},
		[]string{"driver", "outcome"},
	)

	RetrievedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsteal_retrieved_bytes_total",
			Help: "Bytes returned by the remote file-read function",
		},
		[]string{"driver"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlsteal_fetch_duration_seconds",
			Help:    "Time to connect, read and disconnect",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"driver"},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlsteal_last_run_timestamp_seconds",
			Help: "Unix time of the last run",
		},
	)
)

func init() {
	Registry.MustRegister(
		RetrievalsTotal,
		RetrievedBytes,
		FetchDuration,
		LastRunTimestamp,
	)
}

// ObserveFetch records one fetch.
func ObserveFetch(driver string, d time.Duration, size int) {
	FetchDuration.WithLabelValues(driver).Observe(d.Seconds())
	RetrievedBytes.WithLabelValues(driver).Add(float64(size))
}

// ObserveOutcome counts a finished run.
func ObserveOutcome(driver, outcome string) {
	RetrievalsTotal.WithLabelValues(driver, outcome).Inc()
	LastRunTimestamp.SetToCurrentTime()
}

// WriteFile writes all metrics in the Prometheus text format to path.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
