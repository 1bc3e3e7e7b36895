package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nizami",
			Subsystem: "pipeline",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step latency",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"step"},
	)

	stepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nizami",
			Subsystem: "pipeline",
			Name:      "step_errors_total",
			Help:      "Pipeline step failures, including those absorbed by a safe default",
		},
		[]string{"step"},
	)

	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nizami",
			Subsystem: "pipeline",
			Name:      "turns_total",
			Help:      "Completed turns by outcome",
		},
		[]string{"outcome"},
	)

	routerDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nizami",
			Subsystem: "pipeline",
			Name:      "router_decisions_total",
			Help:      "Router decisions",
		},
		[]string{"decision"},
	)
)
