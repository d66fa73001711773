package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status is the authoring status of a rule.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Rule is a merchant-authored condition/action pair as served by the rule backend.
//
// The wire format is loose: thresholds may be numbers or strings and the product
// list may be an array or a JSON-encoded string. Parsing problems do not fail
// decoding; they surface from Compile so one bad rule never hides the others.
type Rule struct {
	ID   string `json:"id" yaml:"id" validate:"required,max=255"`
	Name string `json:"name" yaml:"name" validate:"max=255"`

	MinCartValue  Amount `json:"minCartValue" yaml:"minCartValue"`
	HasUpperLimit bool   `json:"hasUpperLimit" yaml:"hasUpperLimit"`
	// MaxCartValue is only consulted when HasUpperLimit is set.
	MaxCartValue Amount `json:"maxCartValue" yaml:"maxCartValue"`

	ProductIDs ProductList `json:"productIds" yaml:"productIds"`

	WorksInReverse        bool `json:"worksInReverse" yaml:"worksInReverse"`
	AllowMultipleTriggers bool `json:"allowMultipleTriggers" yaml:"allowMultipleTriggers"`
	ExecuteOncePerSession bool `json:"executeOncePerSession" yaml:"executeOncePerSession"`
	// PreventQuantityChanges is passed through to the host page, which locks
	// quantity editing on the added lines.
	PreventQuantityChanges bool `json:"preventQuantityChanges" yaml:"preventQuantityChanges"`

	Status   Status `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	IsActive *bool  `json:"isActive,omitempty" yaml:"isActive,omitempty"`
}

// UnmarshalJSON accepts the id as a string or a number; backends keyed by
// integer ids serve the latter.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	var wire struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := parseRuleID(wire.ID)
	if err != nil {
		return err
	}
	*r = Rule(wire.plain)
	r.ID = id
	return nil
}

func parseRuleID(data json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return "", fmt.Errorf("id: %w", err)
	}
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(id), nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("id: unsupported value %v", v)
	}
}

// Active reports whether the rule takes part in evaluation.
// An explicit status wins; otherwise the legacy isActive flag decides, and a rule
// carrying neither is active because the backend only serves active rules.
func (r Rule) Active() bool {
	switch r.Status {
	case StatusActive:
		return true
	case StatusInactive:
		return false
	}
	if r.IsActive != nil {
		return *r.IsActive
	}
	return true
}

// Amount is a decimal in currency major units, kept as its textual form.
type Amount string

// UnmarshalJSON accepts numbers, strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount(data)
			return nil
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(data)
	return nil
}

// MarshalJSON writes the amount as a JSON number when it parses as one.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(a), 64); err == nil {
		return []byte(a), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalYAML takes the scalar text whatever its resolved type.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*a = ""
		return nil
	}
	*a = Amount(strings.TrimSpace(node.Value))
	return nil
}

// MinorUnits converts the amount to the smallest currency unit.
// An empty amount is zero.
func (a Amount) MinorUnits() (int64, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	minor := math.Round(f * 100)
	if math.Abs(minor) >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return int64(minor), nil
}

// ProductList is the ordered list of product identifiers a rule adds.
type ProductList struct {
	ids []string
	err error
}

// Products builds a ProductList from identifiers.
func Products(ids ...string) ProductList {
	return ProductList{ids: append([]string(nil), ids...)}
}

// IDs returns the identifiers, or the error that made the list unparsable.
func (p ProductList) IDs() ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	return append([]string(nil), p.ids...), nil
}

// UnmarshalJSON accepts an array of numbers/strings or a string holding such an
// array. It never fails; a malformed list is reported by IDs.
func (p *ProductList) UnmarshalJSON(data []byte) error {
	p.ids, p.err = parseProductJSON(data)
	return nil
}

// MarshalJSON writes the list as an array of strings.
func (p ProductList) MarshalJSON() ([]byte, error) {
	if p.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.ids)
}

// UnmarshalYAML accepts a sequence or a scalar holding a JSON array.
func (p *ProductList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		ids := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || strings.TrimSpace(item.Value) == "" {
				p.ids, p.err = nil, fmt.Errorf("productIds line %d: expected a product id", item.Line)
				return nil
			}
			ids = append(ids, strings.TrimSpace(item.Value))
		}
		p.ids, p.err = ids, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			p.ids, p.err = nil, nil
			return nil
		}
		p.ids, p.err = parseProductArray([]byte(node.Value))
	default:
		p.ids, p.err = nil, fmt.Errorf("productIds line %d: expected a list", node.Line)
	}
	return nil
}

// MarshalYAML writes the list as a sequence.
func (p ProductList) MarshalYAML() (interface{}, error) {
	return p.ids, nil
}

func parseProductJSON(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil, fmt.Errorf("productIds: %w", err)
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		return parseProductArray([]byte(encoded))
	}
	return parseProductArray(data)
}

func parseProductArray(data []byte) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw []any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("productIds: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for i, v := range raw {
		switch id := v.(type) {
		case json.Number:
			ids = append(ids, id.String())
		case string:
			if strings.TrimSpace(id) == "" {
				return nil, fmt.Errorf("productIds[%d]: empty id", i)
			}
			ids = append(ids, strings.TrimSpace(id))
		default:
			return nil, fmt.Errorf("productIds[%d]: unsupported value %v", i, v)
		}
	}
	return ids, nil
}
