package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var broadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cartrules",
		Subsystem: "refresh",
		Name:      "broadcasts_total",
		Help:      "Messages broadcast to host pages, labelled by type.",
	},
	[]string{"type"},
)
