package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval path labels.
const (
	PathVector   = "vector"
	PathFallback = "fallback"
	PathRejected = "rejected"
	PathEmpty    = "empty"
)

// Retrieval pipeline metrics.
var (
	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_total",
			Help:      "Retrieval requests by the path that produced the answer",
		},
		[]string{"path"},
	)

	ConfidenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confidence_total",
			Help:      "Retrieval responses by confidence band",
		},
		[]string{"band"},
	)

	OffDomainRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offdomain_rejections_total",
			Help:      "Queries rejected as off-domain, by category",
		},
		[]string{"category"},
	)

	VectorQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vector_query_duration_seconds",
			Help:      "Vector index query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	GeneratorFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_fallback_total",
			Help:      "Answers rendered from the local template after a generator failure",
		},
	)
)

func retrievalCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RetrievalTotal,
		ConfidenceTotal,
		OffDomainRejectionsTotal,
		VectorQueryDuration,
		GeneratorFallbackTotal,
	}
}
