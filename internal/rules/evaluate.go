package rules

import "cartrules/internal/cart"

// Decision is the outcome of evaluating one rule against one cart snapshot.
type Decision int

const (
	// Skip means no mutation and no state change.
	Skip Decision = iota
	// Fire means add the rule's products.
	Fire
	// Reverse means remove the products this engine previously added for the rule.
	Reverse
)

func (d Decision) String() string {
	switch d {
	case Fire:
		return "fire"
	case Reverse:
		return "reverse"
	default:
		return "skip"
	}
}

// Qualifies reports whether totalMinor lies inside the rule's thresholds.
// Both bounds are inclusive; the upper bound only applies with HasUpperLimit.
func (c Compiled) Qualifies(totalMinor int64) bool {
	meetsLower := totalMinor >= c.MinMinor
	meetsUpper := !c.HasUpperLimit || totalMinor <= c.MaxMinor
	return meetsLower && meetsUpper
}

// Decide evaluates a rule against a cart snapshot. firedThisSession reports
// whether the rule already forward-fired in the current session.
//
// ExecuteOncePerSession only gates Fire. A rule that no longer qualifies still
// reverses even after it fired once.
func Decide(c Compiled, snap cart.Snapshot, firedThisSession bool) Decision {
	if c.Qualifies(snap.TotalMinor) {
		if c.ExecuteOncePerSession && firedThisSession {
			return Skip
		}
		return Fire
	}
	if c.WorksInReverse {
		return Reverse
	}
	return Skip
}
