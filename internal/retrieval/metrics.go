package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var searches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nizami",
		Subsystem: "retrieval",
		Name:      "searches_total",
		Help:      "Chunk searches by strategy and outcome",
	},
	[]string{"strategy", "outcome"},
)
