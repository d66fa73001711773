package engine

import (
	"context"

	"cartrules/internal/cart"
	"cartrules/internal/rules"
	"cartrules/internal/telemetry"
	"cartrules/pkg/logging"
)

// ActionResult lists what one Fire or Reverse did to the cart.
type ActionResult struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Modified reports whether at least one mutation succeeded.
func (r ActionResult) Modified() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// PassCart is the cart as the current pass has left it: the snapshot read at
// the start of the pass with the pass's own successful mutations applied.
// Rules later in declaration order see what earlier rules added or removed.
type PassCart struct {
	cart.Snapshot
	added   map[string]bool
	removed map[string]bool
}

// NewPassCart starts a pass view over snap.
func NewPassCart(snap cart.Snapshot) *PassCart {
	return &PassCart{
		Snapshot: snap,
		added:    make(map[string]bool),
		removed:  make(map[string]bool),
	}
}

// Has reports whether productID is in the cart after this pass's mutations.
func (p *PassCart) Has(productID string) bool {
	if p.removed[productID] {
		return false
	}
	if p.added[productID] {
		return true
	}
	return p.Snapshot.Has(productID)
}

func (p *PassCart) markAdded(productID string) {
	delete(p.removed, productID)
	p.added[productID] = true
}

func (p *PassCart) markRemoved(productID string) {
	delete(p.added, productID)
	p.removed[productID] = true
}

// Executor applies Fire and Reverse decisions to the cart and keeps the
// idempotency sets in State current.
type Executor struct {
	cart     cart.Accessor
	state    *State
	reporter telemetry.Reporter
	shop     string
}

// NewExecutor creates an executor. A nil reporter drops execution events.
func NewExecutor(accessor cart.Accessor, state *State, reporter telemetry.Reporter, shop string) *Executor {
	if reporter == nil {
		reporter = telemetry.NopReporter{}
	}
	return &Executor{
		cart:     accessor,
		state:    state,
		reporter: reporter,
		shop:     shop,
	}
}

// Fire adds the rule's products that are neither tracked nor already in the
// cart. Products already in the cart are tracked without an add. The rule is
// marked fired, and reported, only if an add succeeded.
func (x *Executor) Fire(ctx context.Context, rule rules.Compiled, current *PassCart) ActionResult {
	var res ActionResult

	for _, productID := range rule.Products {
		if x.state.IsTracked(productID) {
			continue
		}
		if current.Has(productID) {
			x.state.Track(productID)
			continue
		}

		if err := x.cart.Add(ctx, productID, 1); err != nil {
			mutationsTotal.WithLabelValues("add", "failure").Inc()
			logging.Warn("Engine", "Rule %s: add of product %s failed: %v", rule.ID, productID, err)
			res.Failed = append(res.Failed, productID)
			continue
		}
		mutationsTotal.WithLabelValues("add", "success").Inc()
		x.state.Track(productID)
		current.markAdded(productID)
		res.Added = append(res.Added, productID)
		logging.Info("Engine", "Rule %q added product %s", displayName(rule), productID)
	}

	if len(res.Added) > 0 {
		x.state.MarkFired(rule.ID)
		x.reporter.Report(telemetry.Event{
			RuleID:    rule.ID,
			SessionID: x.state.SessionID(),
			CartID:    current.Token,
			Shop:      x.shop,
		})
	}
	return res
}

// Reverse removes the rule's products that the engine added and that are
// still in the cart. Fired keys are neither consulted nor cleared.
func (x *Executor) Reverse(ctx context.Context, rule rules.Compiled, current *PassCart) ActionResult {
	var res ActionResult

	for _, productID := range rule.Products {
		if !x.state.IsTracked(productID) || !current.Has(productID) {
			continue
		}

		if err := x.cart.Remove(ctx, productID); err != nil {
			mutationsTotal.WithLabelValues("remove", "failure").Inc()
			logging.Warn("Engine", "Rule %s: removal of product %s failed: %v", rule.ID, productID, err)
			res.Failed = append(res.Failed, productID)
			continue
		}
		mutationsTotal.WithLabelValues("remove", "success").Inc()
		x.state.Untrack(productID)
		current.markRemoved(productID)
		res.Removed = append(res.Removed, productID)
		logging.Info("Engine", "Rule %q removed product %s (reverse)", displayName(rule), productID)
	}
	return res
}

func displayName(rule rules.Compiled) string {
	if rule.Name != "" {
		return rule.Name
	}
	return rule.ID
}
