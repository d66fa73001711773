// Package reconciler schedules cart reconciliation passes.
//
// # Overview
//
// Change signals reach the Scheduler from several producers: host page events
// posted over HTTP or the WebSocket, the rule file watcher, and the Scheduler's
// own poll ticker. All of them are funnelled into one channel and collapsed by
// a debounce timer into single passes run by a PassRunner (the engine).
//
// # States
//
//	Idle        --signal-->            Debouncing
//	Debouncing  --signal-->            Debouncing (timer restarted)
//	Debouncing  --timer, suppressing-> Idle (signal dropped)
//	Debouncing  --timer-->             Reconciling
//	Reconciling --signal-->            Reconciling (recorded)
//	Reconciling --done, recorded-->    Debouncing
//	Reconciling --done-->              Idle
//
// Start runs one forced pass before entering Idle. The poll ticker injects a
// signal unless a pass is running or the suppression window is active.
//
// # Usage
//
//	scheduler := reconciler.NewScheduler(reconciler.SchedulerConfig{
//	    DebounceInterval: 500 * time.Millisecond,
//	    PollInterval:     30 * time.Second,
//	}, eng)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
//
//	scheduler.Signal(reconciler.SourceCartUpdated)
package reconciler
