package reconciler

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cartrules/internal/engine"
)

// Disposition is what the scheduler did with a signal.
type Disposition string

const (
	// DispositionAccepted means the signal (re)started the debounce timer.
	DispositionAccepted Disposition = "accepted"

	// DispositionDeferred means the signal arrived during a pass and was
	// recorded for a new debounce cycle after it.
	DispositionDeferred Disposition = "deferred"

	// DispositionSuppressed means the debounce elapsed inside the suppression
	// window and the signal was dropped.
	DispositionSuppressed Disposition = "suppressed"

	// DispositionOverflow means the signal buffer was full.
	DispositionOverflow Disposition = "overflow"
)

var (
	signalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cartrules",
			Subsystem: "scheduler",
			Name:      "signals_total",
			Help:      "Change signals, labelled by source and disposition.",
		},
		[]string{"source", "disposition"},
	)

	stateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cartrules",
			Subsystem: "scheduler",
			Name:      "state",
			Help:      "Current scheduler state (1 for the active state).",
		},
		[]string{"state"},
	)
)

// SchedulerMetrics counts signals and passes for the status endpoint.
type SchedulerMetrics struct {
	mu sync.RWMutex

	signalsBySource map[SignalSource]int64
	dispositions    map[Disposition]int64
	passesByOutcome map[engine.Outcome]int64

	totalPasses  int64
	lastPassAt   time.Time
	lastOutcome  engine.Outcome
	lastModified time.Time
}

// NewSchedulerMetrics creates empty counters.
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		signalsBySource: make(map[SignalSource]int64),
		dispositions:    make(map[Disposition]int64),
		passesByOutcome: make(map[engine.Outcome]int64),
	}
}

// RecordSignal counts a signal. source may be empty for dispositions that
// are not tied to one signal.
func (m *SchedulerMetrics) RecordSignal(source SignalSource, disposition Disposition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source != "" {
		m.signalsBySource[source]++
	}
	m.dispositions[disposition]++
	signalsTotal.WithLabelValues(string(source), string(disposition)).Inc()
}

// RecordPass counts a finished pass.
func (m *SchedulerMetrics) RecordPass(res engine.PassResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.totalPasses++
	m.passesByOutcome[res.Outcome]++
	m.lastPassAt = now
	m.lastOutcome = res.Outcome
	if res.Modified {
		m.lastModified = now
	}
}

// SchedulerMetricsSummary is a read-only view of SchedulerMetrics.
type SchedulerMetricsSummary struct {
	TotalPasses     int64                    `json:"totalPasses"`
	PassesByOutcome map[engine.Outcome]int64 `json:"passesByOutcome"`
	Signals         []SignalCount            `json:"signals"`
	Dispositions    map[Disposition]int64    `json:"dispositions"`
	LastPassAt      time.Time                `json:"lastPassAt,omitempty"`
	LastOutcome     engine.Outcome           `json:"lastOutcome,omitempty"`
	LastModifiedAt  time.Time                `json:"lastModifiedAt,omitempty"`
}

// SignalCount is the number of signals received from one source.
type SignalCount struct {
	Source SignalSource `json:"source"`
	Count  int64        `json:"count"`
}

// Summary returns a copy of the counters.
func (m *SchedulerMetrics) Summary() SchedulerMetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := SchedulerMetricsSummary{
		TotalPasses:     m.totalPasses,
		PassesByOutcome: make(map[engine.Outcome]int64, len(m.passesByOutcome)),
		Dispositions:    make(map[Disposition]int64, len(m.dispositions)),
		LastPassAt:      m.lastPassAt,
		LastOutcome:     m.lastOutcome,
		LastModifiedAt:  m.lastModified,
	}
	for k, v := range m.passesByOutcome {
		summary.PassesByOutcome[k] = v
	}
	for k, v := range m.dispositions {
		summary.Dispositions[k] = v
	}
	for src, n := range m.signalsBySource {
		summary.Signals = append(summary.Signals, SignalCount{Source: src, Count: n})
	}
	sort.Slice(summary.Signals, func(i, j int) bool {
		return summary.Signals[i].Source < summary.Signals[j].Source
	})
	return summary
}

// Passes returns the number of finished passes, busy ones included.
func (m *SchedulerMetrics) Passes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPasses
}

// Disposition returns how many signals got disposition d.
func (m *SchedulerMetrics) Disposition(d Disposition) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispositions[d]
}
