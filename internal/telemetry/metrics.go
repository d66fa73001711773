package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cartrules",
		Subsystem: "telemetry",
		Name:      "reports_total",
		Help:      "Rule execution reports sent, labelled by result.",
	},
	[]string{"result"},
)
