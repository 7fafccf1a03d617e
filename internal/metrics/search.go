package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gateway domain metrics.
var (
	SearchHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ftsearch",
			Subsystem: "gateway",
			Name:      "search_hits",
			Help:      "Total matches reported by FT.SEARCH per request",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
		[]string{"index"},
	)

	DocumentsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsearch",
			Subsystem: "gateway",
			Name:      "documents_written_total",
			Help:      "Documents written through the gateway",
		},
		[]string{"index", "mode"}, // "single" / "batch"
	)
)

var gatewayMetricsRegistered bool

// RegisterGatewayMetrics registers the gateway domain metrics. Must be called once from main.
func RegisterGatewayMetrics() {
	if gatewayMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchHits)
	prometheus.MustRegister(DocumentsWritten)
	gatewayMetricsRegistered = true
}
