package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nizami",
		Subsystem: "embedding_cache",
		Name:      "lookups_total",
		Help:      "Embedding cache lookups by result",
	},
	[]string{"result"},
)
