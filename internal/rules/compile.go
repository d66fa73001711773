package rules

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Compiled is a rule whose thresholds and product list have been parsed.
type Compiled struct {
	Rule

	// Products is the parsed, ordered product list.
	Products []string

	// MinMinor and MaxMinor are the thresholds in minor currency units.
	// MaxMinor is meaningless unless HasUpperLimit is set.
	MinMinor int64
	MaxMinor int64
}

// InvalidRuleError reports a rule that cannot be evaluated.
type InvalidRuleError struct {
	RuleID string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("invalid rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, e.Reason)
}

// Compile validates r and parses its thresholds and products.
func Compile(r Rule) (Compiled, error) {
	if err := validate.Struct(r); err != nil {
		return Compiled{}, &InvalidRuleError{RuleID: r.ID, Reason: err.Error()}
	}

	products, err := r.ProductIDs.IDs()
	if err != nil {
		return Compiled{}, &InvalidRuleError{RuleID: r.ID, Reason: err.Error()}
	}

	minMinor, err := r.MinCartValue.MinorUnits()
	if err != nil {
		return Compiled{}, &InvalidRuleError{RuleID: r.ID, Reason: "minCartValue: " + err.Error()}
	}

	c := Compiled{
		Rule:     r,
		Products: products,
		MinMinor: minMinor,
	}

	if r.HasUpperLimit {
		if r.MaxCartValue == "" {
			return Compiled{}, &InvalidRuleError{RuleID: r.ID, Reason: "maxCartValue is required when hasUpperLimit is set"}
		}
		maxMinor, err := r.MaxCartValue.MinorUnits()
		if err != nil {
			return Compiled{}, &InvalidRuleError{RuleID: r.ID, Reason: "maxCartValue: " + err.Error()}
		}
		c.MaxMinor = maxMinor
	}

	return c, nil
}
