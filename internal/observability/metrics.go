package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rmf",
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Total document loads by decoder and result kind.",
		},
		[]string{"decoder", "result"},
	)
	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rmf",
			Subsystem: "loader",
			Name:      "load_duration_seconds",
			Help:      "Document load duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"decoder", "result"},
	)
	loadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rmf",
			Subsystem: "loader",
			Name:      "bytes_total",
			Help:      "Document bytes handed to the loader.",
		},
		[]string{"decoder"},
	)
	headerWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rmf",
			Subsystem: "loader",
			Name:      "header_warnings_total",
			Help:      "Header failures tolerated by the lenient policy.",
		},
		[]string{"decoder"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(loadsTotal, loadDuration, loadBytes, headerWarnings)
	})
}

// RecordLoad records one load. result is an rmf.Kind string ("ok" on success).
func RecordLoad(decoder, result string, bytes, warnings int, duration time.Duration) {
	RegisterMetrics()
	loadsTotal.WithLabelValues(decoder, result).Inc()
	loadDuration.WithLabelValues(decoder, result).Observe(duration.Seconds())
	loadBytes.WithLabelValues(decoder).Add(float64(bytes))
	if warnings > 0 {
		headerWarnings.WithLabelValues(decoder).Add(float64(warnings))
	}
}
