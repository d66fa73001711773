package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"cartrules/internal/engine"
	"cartrules/pkg/logging"
)

// passOutcome is what a pass goroutine reports back to the loop.
type passOutcome struct {
	result engine.PassResult
	err    error
	forced bool
}

// Scheduler turns change signals into reconciliation passes.
//
// All signals go through one channel consumed by a single goroutine that owns
// the Idle/Debouncing/Reconciling state machine:
//   - a signal starts or restarts the debounce timer
//   - when the timer fires the pass runs, unless the suppression window is
//     active, in which case the signal is dropped
//   - signals arriving during a pass are recorded and start a new debounce
//     once the pass finishes
//   - the poll ticker injects a signal unless a pass is running or the
//     suppression window is active
//
// A rules:changed signal makes the next pass forced, so a new rule set is
// applied even when the cart did not change.
type Scheduler struct {
	mu sync.RWMutex

	config SchedulerConfig
	runner PassRunner

	// signals receives change signals from every producer
	signals chan Signal

	state      State
	lastResult *engine.PassResult

	// pending and forceNext are owned by the loop goroutine
	pending   bool
	forceNext bool

	metrics *SchedulerMetrics

	// ctx is the scheduler's context
	ctx context.Context

	// cancelFunc cancels the scheduler's context
	cancelFunc context.CancelFunc

	// wg tracks the loop and in-flight passes
	wg sync.WaitGroup

	running bool
}

// NewScheduler creates a scheduler for runner.
func NewScheduler(config SchedulerConfig, runner PassRunner) *Scheduler {
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if config.PollInterval == 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.PassTimeout == 0 {
		config.PassTimeout = time.Minute
	}
	if config.SignalBuffer == 0 {
		config.SignalBuffer = 64
	}

	return &Scheduler{
		config:  config,
		runner:  runner,
		signals: make(chan Signal, config.SignalBuffer),
		state:   StateIdle,
		metrics: NewSchedulerMetrics(),
	}
}

// Start runs the forced startup pass and then processes signals until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(s.ctx)

	logging.Info("Scheduler", "Started (debounce %s, poll %s)", s.config.DebounceInterval, s.config.PollInterval)
	return nil
}

// Stop stops the loop and waits for an in-flight pass to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancelFunc := s.cancelFunc
	s.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}
	s.wg.Wait()

	logging.Info("Scheduler", "Stopped")
	return nil
}

// Signal queues a change signal. It never blocks; when the buffer is full
// the signal is dropped, since a pass is already due.
func (s *Scheduler) Signal(source SignalSource) {
	sig := Signal{Source: source, Timestamp: time.Now()}
	select {
	case s.signals <- sig:
	default:
		s.metrics.RecordSignal(source, DispositionOverflow)
		logging.Debug("Scheduler", "Signal buffer full, dropping %s", source)
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastResult returns the result of the most recent pass the scheduler ran.
func (s *Scheduler) LastResult() (engine.PassResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastResult == nil {
		return engine.PassResult{}, false
	}
	return *s.lastResult, true
}

// Metrics returns the scheduler's counters.
func (s *Scheduler) Metrics() *SchedulerMetrics {
	return s.metrics
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev != state {
		stateGauge.WithLabelValues(string(prev)).Set(0)
		stateGauge.WithLabelValues(string(state)).Set(1)
		logging.Debug("Scheduler", "%s -> %s", prev, state)
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)
	stopDebounce := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce, debounceC = nil, nil
	}
	restartDebounce := func() {
		stopDebounce()
		debounce = time.NewTimer(s.config.DebounceInterval)
		debounceC = debounce.C
		s.setState(StateDebouncing)
	}
	defer stopDebounce()

	passDone := make(chan passOutcome, 1)

	if s.config.SkipStartupPass {
		s.setState(StateIdle)
	} else {
		s.startPass(ctx, true, passDone)
	}

	poll := time.NewTicker(s.config.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case sig := <-s.signals:
			if sig.Source == SourceRulesChanged {
				s.forceNext = true
			}
			if s.State() == StateReconciling {
				s.pending = true
				s.metrics.RecordSignal(sig.Source, DispositionDeferred)
				continue
			}
			s.metrics.RecordSignal(sig.Source, DispositionAccepted)
			restartDebounce()

		case <-poll.C:
			if s.State() == StateReconciling || s.runner.Suppressing() {
				continue
			}
			s.metrics.RecordSignal(SourcePoll, DispositionAccepted)
			restartDebounce()

		case <-debounceC:
			debounce, debounceC = nil, nil
			if s.runner.Suppressing() {
				s.metrics.RecordSignal("", DispositionSuppressed)
				logging.Debug("Scheduler", "Suppression window active, dropping signal")
				s.setState(StateIdle)
				continue
			}
			force := s.forceNext
			s.forceNext = false
			s.startPass(ctx, force, passDone)

		case out := <-passDone:
			s.finishPass(out)
			if s.pending {
				s.pending = false
				restartDebounce()
			} else {
				s.setState(StateIdle)
			}
		}
	}
}

func (s *Scheduler) startPass(ctx context.Context, force bool, done chan<- passOutcome) {
	s.setState(StateReconciling)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
		defer cancel()

		res, err := s.runner.Reconcile(passCtx, force)
		done <- passOutcome{result: res, err: err, forced: force}
	}()
}

func (s *Scheduler) finishPass(out passOutcome) {
	if errors.Is(out.err, engine.ErrPassInProgress) {
		// A manual pass holds the flag; try again after it.
		s.pending = true
		s.forceNext = s.forceNext || out.forced
		s.metrics.RecordPass(out.result)
		logging.Debug("Scheduler", "Pass already running, rescheduling")
		return
	}
	if out.err != nil {
		logging.Error("Scheduler", out.err, "Reconciliation pass failed")
	}

	s.mu.Lock()
	res := out.result
	s.lastResult = &res
	s.mu.Unlock()

	s.metrics.RecordPass(out.result)
}
