package formatting

import (
	"encoding/json"

	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/internal/server"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) FormatRules(ruleSet []rules.Rule) error {
	return f.encode(map[string]any{"rules": ruleSet, "count": len(ruleSet)})
}

func (f *JSONFormatter) FormatStatus(status server.StatusResponse) error {
	return f.encode(status)
}

func (f *JSONFormatter) FormatPass(result engine.PassResult) error {
	return f.encode(result)
}

func (f *JSONFormatter) encode(v any) error {
	enc := json.NewEncoder(f.options.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
