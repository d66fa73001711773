package reconciler

import (
	"context"
	"time"

	"cartrules/internal/engine"
)

// SignalSource names where a change signal came from. The scheduler treats
// every source the same; the name is kept for logs and metrics.
type SignalSource string

const (
	// SourceCartUpdated is the host's generic cart-updated event.
	SourceCartUpdated SignalSource = "cart:updated"

	// SourceCartChanged is the host's cart-changed event.
	SourceCartChanged SignalSource = "cart:changed"

	// SourceThemeCartChange is emitted by themes with their own cart events.
	SourceThemeCartChange SignalSource = "theme:cart:change"

	// SourceAjaxCartLoaded is emitted by Ajax-cart themes after a cart load.
	SourceAjaxCartLoaded SignalSource = "ajaxCart.afterCartLoad"

	// SourceCartOpen is emitted when the cart page or popup opens.
	SourceCartOpen SignalSource = "cart:open"

	// SourceCartDrawerOpen is emitted when the cart drawer opens.
	SourceCartDrawerOpen SignalSource = "cart-drawer:open"

	// SourcePoll is the periodic safety-net signal.
	SourcePoll SignalSource = "poll"

	// SourceRulesChanged is emitted after the rule set was invalidated.
	SourceRulesChanged SignalSource = "rules:changed"
)

// HostSources are the signal sources host pages may send.
var HostSources = []SignalSource{
	SourceCartUpdated,
	SourceCartChanged,
	SourceThemeCartChange,
	SourceAjaxCartLoaded,
	SourceCartOpen,
	SourceCartDrawerOpen,
}

// ParseHostSource validates a host-supplied source name.
func ParseHostSource(s string) (SignalSource, bool) {
	for _, src := range HostSources {
		if string(src) == s {
			return src, true
		}
	}
	return "", false
}

// Signal is one change notification.
type Signal struct {
	// Source is where the signal came from.
	Source SignalSource

	// Timestamp is when the signal was received.
	Timestamp time.Time
}

// State is the scheduler state.
type State string

const (
	// StateIdle means no signal is pending and no pass is running.
	StateIdle State = "Idle"

	// StateDebouncing means a pass is scheduled once the signals settle.
	StateDebouncing State = "Debouncing"

	// StateReconciling means a pass is running.
	StateReconciling State = "Reconciling"
)

// PassRunner runs reconciliation passes. *engine.Engine implements it.
type PassRunner interface {
	// Reconcile runs one pass; engine.ErrPassInProgress means another pass
	// held the flag.
	Reconcile(ctx context.Context, force bool) (engine.PassResult, error)

	// Suppressing reports whether the self-trigger suppression window is active.
	Suppressing() bool
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// DebounceInterval is the quiet period after the last signal before a
	// pass starts.
	DebounceInterval time.Duration

	// PollInterval is how often a safety-net signal is injected.
	PollInterval time.Duration

	// PassTimeout bounds a single pass.
	PassTimeout time.Duration

	// SignalBuffer is the capacity of the signal channel.
	SignalBuffer int

	// SkipStartupPass disables the forced pass run by Start.
	SkipStartupPass bool
}
