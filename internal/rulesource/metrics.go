package rulesource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ruleLoads = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cartrules",
		Subsystem: "rulesource",
		Name:      "loads_total",
		Help:      "Rule set fetches, labelled by result.",
	},
	[]string{"result"},
)

var rulesSkipped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cartrules",
		Subsystem: "rulesource",
		Name:      "malformed_rules_total",
		Help:      "Rules dropped at load time because they could not be decoded.",
	},
)

func recordLoad(ok bool) {
	if ok {
		ruleLoads.WithLabelValues("success").Inc()
		return
	}
	ruleLoads.WithLabelValues("failure").Inc()
}

func recordSkipped() {
	rulesSkipped.Inc()
}
