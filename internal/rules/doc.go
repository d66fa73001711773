// Package rules holds the merchant rule model and the pure decision function
// used by the reconciliation engine.
//
// A Rule arrives from the rule backend in a loose wire format. Compile turns it
// into a Compiled rule with integer thresholds in minor currency units and a
// parsed product list, or reports an InvalidRuleError. Decide then maps a
// compiled rule and a cart snapshot to Fire, Reverse or Skip:
//
//	qualifies := total >= min && (!hasUpperLimit || total <= max)
//	qualifies && executeOncePerSession && firedThisSession -> Skip
//	qualifies                                              -> Fire
//	!qualifies && worksInReverse                           -> Reverse
//	otherwise                                              -> Skip
//
// Rules are evaluated independently of each other; Decide has no side effects.
package rules
