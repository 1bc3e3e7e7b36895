package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestLatency measures completion and embedding latency.
	// Labels: purpose, model, status (success, error)
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nizami",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "LLM request latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"purpose", "model", "status"})

	// requestsTotal counts LLM requests.
	// Labels: purpose, model, status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nizami",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "Total LLM requests",
	}, []string{"purpose", "model", "status"})

	// breakerRejections counts calls refused while a breaker was open.
	// Labels: model
	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nizami",
		Subsystem: "llm",
		Name:      "breaker_rejections_total",
		Help:      "Total LLM calls rejected by an open circuit breaker",
	}, []string{"model"})
)

// recordRequest records one LLM request outcome
func recordRequest(purpose, model string, err error, latency time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	requestLatency.WithLabelValues(purpose, model, status).Observe(latency.Seconds())
	requestsTotal.WithLabelValues(purpose, model, status).Inc()
}
