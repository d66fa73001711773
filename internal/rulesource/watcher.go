package rulesource

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cartrules/pkg/logging"
)

// Invalidator is the part of Cache the watcher needs.
type Invalidator interface {
	Invalidate()
}

// Watcher watches a rule directory and invalidates the rule cache when a YAML
// file changes. Bursts of file events are coalesced into one invalidation.
type Watcher struct {
	mu sync.Mutex

	dir      string
	cache    Invalidator
	onChange func()

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration
	pending          *time.Timer

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a rule directory watcher. onChange, if set, runs after
// each invalidation.
func NewWatcher(dir string, cache Invalidator, debounceInterval time.Duration, onChange func()) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 200 * time.Millisecond
	}

	return &Watcher{
		dir:              dir,
		cache:            cache,
		onChange:         onChange,
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching the rule directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.mu.Unlock()
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx, watcher)

	logging.Info("RuleSource", "Started watching %s for rule changes", w.dir)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return

		case <-w.stopCh:
			w.cancelPending()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("RuleSource", err, "Rule watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !isYAMLFile(event.Name) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	logging.Debug("RuleSource", "Rule file event: %s %s", event.Op, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceInterval, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.pending = nil
	running := w.running
	w.mu.Unlock()

	if !running {
		return
	}

	w.cache.Invalidate()
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("RuleSource", err, "Error closing rule watcher")
		}
		w.watcher = nil
	}

	logging.Info("RuleSource", "Stopped rule watcher")
	return nil
}
