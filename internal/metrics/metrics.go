package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fp_resv_closures",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	previewsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fp_resv_closures",
			Name:      "previews_generated_total",
			Help:      "Count of previews computed from scratch.",
		},
	)

	previewCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fp_resv_closures",
			Name:      "preview_cache_total",
			Help:      "Preview cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	exceptionMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fp_resv_closures",
			Name:      "exception_mutations_total",
			Help:      "Count of exception record mutations by action.",
		},
		[]string{"action"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, previewsGenerated, previewCache, exceptionMutations)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncPreviewGenerated() {
	previewsGenerated.Inc()
}

func IncPreviewCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	previewCache.WithLabelValues(outcome).Inc()
}

func IncMutation(action string) {
	exceptionMutations.WithLabelValues(action).Inc()
}
