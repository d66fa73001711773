package formatting

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/internal/server"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatRules(ruleSet []rules.Rule) error {
	return f.encode(map[string]any{"rules": ruleSet, "count": len(ruleSet)})
}

func (f *YAMLFormatter) FormatStatus(status server.StatusResponse) error {
	return f.encode(status)
}

func (f *YAMLFormatter) FormatPass(result engine.PassResult) error {
	return f.encode(result)
}

// encode goes through JSON first so field names follow the json tags.
func (f *YAMLFormatter) encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(f.options.Output)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}
