package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartrules",
			Subsystem: "engine",
			Name:      "passes_total",
			Help:      "Reconciliation passes, labelled by outcome.",
		},
		[]string{"outcome"},
	)

	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cartrules",
			Subsystem: "engine",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes that read the cart.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartrules",
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Rule decisions, labelled by decision.",
		},
		[]string{"decision"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartrules",
			Subsystem: "engine",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations issued, labelled by operation and result.",
		},
		[]string{"op", "result"},
	)
)
