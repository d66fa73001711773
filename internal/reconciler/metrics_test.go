package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cartrules/internal/engine"
)

func TestSchedulerMetrics_RecordSignal(t *testing.T) {
	metrics := NewSchedulerMetrics()

	metrics.RecordSignal(SourceCartUpdated, DispositionAccepted)
	metrics.RecordSignal(SourceCartUpdated, DispositionDeferred)
	metrics.RecordSignal(SourceCartOpen, DispositionAccepted)
	metrics.RecordSignal("", DispositionSuppressed)

	summary := metrics.Summary()
	assert.Equal(t, []SignalCount{
		{Source: SourceCartOpen, Count: 1},
		{Source: SourceCartUpdated, Count: 2},
	}, summary.Signals)
	assert.Equal(t, int64(2), metrics.Disposition(DispositionAccepted))
	assert.Equal(t, int64(1), metrics.Disposition(DispositionSuppressed))
	assert.Equal(t, int64(0), metrics.Disposition(DispositionOverflow))
}

func TestSchedulerMetrics_RecordPass(t *testing.T) {
	metrics := NewSchedulerMetrics()

	metrics.RecordPass(engine.PassResult{Outcome: engine.OutcomeUnchanged})
	summary := metrics.Summary()
	assert.Equal(t, int64(1), summary.TotalPasses)
	assert.False(t, summary.LastPassAt.IsZero())
	assert.True(t, summary.LastModifiedAt.IsZero())

	metrics.RecordPass(engine.PassResult{Outcome: engine.OutcomeCompleted, Modified: true})
	summary = metrics.Summary()
	assert.Equal(t, int64(2), metrics.Passes())
	assert.Equal(t, engine.OutcomeCompleted, summary.LastOutcome)
	assert.False(t, summary.LastModifiedAt.IsZero())
	assert.Equal(t, map[engine.Outcome]int64{
		engine.OutcomeUnchanged: 1,
		engine.OutcomeCompleted: 1,
	}, summary.PassesByOutcome)
}

func TestSchedulerMetrics_SummaryIsACopy(t *testing.T) {
	metrics := NewSchedulerMetrics()
	metrics.RecordPass(engine.PassResult{Outcome: engine.OutcomeBusy})

	summary := metrics.Summary()
	summary.PassesByOutcome[engine.OutcomeBusy] = 99

	assert.Equal(t, int64(1), metrics.Summary().PassesByOutcome[engine.OutcomeBusy])
}
