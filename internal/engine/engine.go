package engine

import (
	"context"
	"errors"
	"time"

	"cartrules/internal/cart"
	"cartrules/internal/rules"
	"cartrules/internal/telemetry"
	"cartrules/pkg/logging"
)

// ErrPassInProgress is returned by Reconcile when another pass holds the flag.
var ErrPassInProgress = errors.New("reconciliation pass already in progress")

// Outcome classifies how a pass ended.
type Outcome string

const (
	// OutcomeCompleted means rules were evaluated against a fresh cart.
	OutcomeCompleted Outcome = "completed"
	// OutcomeUnchanged means the cart total and item count had not changed.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeNoRules means the rule set was empty.
	OutcomeNoRules Outcome = "no-rules"
	// OutcomeRulesUnavailable means the rule set could not be loaded.
	OutcomeRulesUnavailable Outcome = "rules-unavailable"
	// OutcomeCartUnavailable means the cart could not be read.
	OutcomeCartUnavailable Outcome = "cart-unavailable"
	// OutcomeSuppressed means the pass was skipped inside a suppression window.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeBusy means another pass was running.
	OutcomeBusy Outcome = "busy"
)

// RuleLoader supplies the rule set for a shop.
type RuleLoader interface {
	Load(ctx context.Context, shop string) ([]rules.Rule, error)
}

// Refresher is notified after a pass modified the cart.
type Refresher interface {
	Refresh(ctx context.Context)
}

// RuleOutcome is the result of evaluating one rule in a pass.
type RuleOutcome struct {
	RuleID   string         `json:"ruleId"`
	Name     string         `json:"name,omitempty"`
	Decision rules.Decision `json:"-"`
	Action   string         `json:"decision"`
	Result   ActionResult   `json:"result"`
	Error    string         `json:"error,omitempty"`
}

// PassResult describes one reconciliation pass.
type PassResult struct {
	Outcome  Outcome        `json:"outcome"`
	Forced   bool           `json:"forced"`
	Modified bool           `json:"modified"`
	Cart     *cart.Snapshot `json:"cart,omitempty"`
	Pruned   []string       `json:"pruned,omitempty"`
	Rules    []RuleOutcome  `json:"rules,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Config configures an Engine.
type Config struct {
	// Shop identifies the store whose rules are loaded and reported against.
	Shop string
}

// Engine runs reconciliation passes: it reads the cart, evaluates every active
// rule in declaration order and applies the decisions.
type Engine struct {
	shop      string
	loader    RuleLoader
	cart      cart.Accessor
	state     *State
	executor  *Executor
	refresher Refresher
}

// New creates an engine. reporter and refresher may be nil.
func New(cfg Config, loader RuleLoader, accessor cart.Accessor, state *State, reporter telemetry.Reporter, refresher Refresher) *Engine {
	return &Engine{
		shop:      cfg.Shop,
		loader:    loader,
		cart:      accessor,
		state:     state,
		executor:  NewExecutor(accessor, state, reporter, cfg.Shop),
		refresher: refresher,
	}
}

// SetRefresher installs the refresher notified after modifying passes.
// It must be called before the first pass.
func (e *Engine) SetRefresher(r Refresher) {
	e.refresher = r
}

// State returns the engine state.
func (e *Engine) State() *State {
	return e.state
}

// Suppressing reports whether the self-trigger suppression window is active.
func (e *Engine) Suppressing() bool {
	return e.state.Suppressing()
}

// Reconcile runs one pass. A forced pass ignores the suppression window and
// the unchanged-cart check. It returns ErrPassInProgress, with an OutcomeBusy
// result, when another pass is running; every other failure is absorbed into
// the result.
func (e *Engine) Reconcile(ctx context.Context, force bool) (PassResult, error) {
	if !e.state.TryBeginPass() {
		passesTotal.WithLabelValues(string(OutcomeBusy)).Inc()
		return PassResult{Outcome: OutcomeBusy, Forced: force}, ErrPassInProgress
	}
	defer e.state.EndPass()

	start := time.Now()
	res := e.reconcile(ctx, force)
	res.Duration = time.Since(start)

	passesTotal.WithLabelValues(string(res.Outcome)).Inc()
	if res.Cart != nil {
		passDuration.Observe(res.Duration.Seconds())
	}
	logging.Debug("Engine", "Pass finished: outcome=%s modified=%t duration=%s", res.Outcome, res.Modified, res.Duration)
	return res, nil
}

func (e *Engine) reconcile(ctx context.Context, force bool) PassResult {
	res := PassResult{Forced: force}

	if !force && e.state.Suppressing() {
		res.Outcome = OutcomeSuppressed
		return res
	}

	ruleSet, err := e.loader.Load(ctx, e.shop)
	if err != nil {
		res.Outcome = OutcomeRulesUnavailable
		res.Error = err.Error()
		return res
	}
	if len(ruleSet) == 0 {
		res.Outcome = OutcomeNoRules
		return res
	}

	snap, err := e.cart.Read(ctx)
	if err != nil {
		logging.Warn("Engine", "Cart read failed, skipping pass: %v", err)
		res.Outcome = OutcomeCartUnavailable
		res.Error = err.Error()
		return res
	}
	res.Cart = &snap

	res.Pruned = e.state.PruneTracked(snap)
	for _, productID := range res.Pruned {
		logging.Debug("Engine", "Product %s left the cart, no longer tracked", productID)
	}

	if last, ok := e.state.LastCart(); ok && !force && snap.SameTotals(last) {
		res.Outcome = OutcomeUnchanged
		return res
	}

	logging.Info("Engine", "Cart total %.2f, %d items, %d rules", snap.TotalMajor(), snap.ItemCount, len(ruleSet))

	current := NewPassCart(snap)
	failed := false
	for _, rule := range ruleSet {
		if !rule.Active() {
			continue
		}

		outcome := RuleOutcome{RuleID: rule.ID, Name: rule.Name}

		compiled, err := rules.Compile(rule)
		if err != nil {
			logging.Warn("Engine", "Skipping rule: %v", err)
			outcome.Decision = rules.Skip
			outcome.Action = rules.Skip.String()
			outcome.Error = err.Error()
			res.Rules = append(res.Rules, outcome)
			continue
		}

		decision := rules.Decide(compiled, snap, e.state.HasFired(compiled.ID))
		decisionsTotal.WithLabelValues(decision.String()).Inc()
		outcome.Decision = decision
		outcome.Action = decision.String()

		switch decision {
		case rules.Fire:
			outcome.Result = e.executor.Fire(ctx, compiled, current)
		case rules.Reverse:
			outcome.Result = e.executor.Reverse(ctx, compiled, current)
		}

		if outcome.Result.Modified() {
			res.Modified = true
		}
		if len(outcome.Result.Failed) > 0 {
			failed = true
		}
		res.Rules = append(res.Rules, outcome)
	}

	res.Outcome = OutcomeCompleted

	// Failed mutations stay retryable on the next poll even if the cart
	// totals do not move.
	if !failed {
		e.state.ObserveCart(snap)
	}

	if res.Modified {
		logging.Info("Engine", "Cart modified by rules, refreshing host")
		if e.refresher != nil {
			e.refresher.Refresh(ctx)
		}
	}
	return res
}
