package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register adds every storydex collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		all := append(embeddingCollectors(), retrievalCollectors()...)
		all = append(all, httpCollectors()...)
		prometheus.MustRegister(all...)
	})
}
