// Package engine runs cart reconciliation passes.
//
// A pass takes the State's pass flag, loads the rule set, reads the cart and
// evaluates every active rule in declaration order. Fire decisions add the
// rule's products that are neither tracked nor present; Reverse decisions
// remove tracked products that are still present. When a pass changed the
// cart, the Refresher is notified, which in turn arms the self-trigger
// suppression window on State.
//
// executeOncePerSession only constrains Fire. A Reverse neither looks at nor
// clears the fired-rule set, so a rule that fired once may still be reversed
// any number of times.
//
// Nothing in a pass is fatal. Load, read and mutation failures are logged and
// reported in the PassResult, and the next pass retries.
package engine
