package formatting

import (
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/internal/server"
)

// TemplateFormatter renders data through a user supplied text/template with
// the sprig function library. Data is passed in its JSON shape, so templates
// use the JSON field names: {{ range .rules }}{{ .id | upper }}{{ end }}.
type TemplateFormatter struct {
	options Options
	tmpl    *template.Template
}

// NewTemplateFormatter parses options.Template.
func NewTemplateFormatter(options Options) (Formatter, error) {
	if options.Template == "" {
		return nil, fmt.Errorf("--template is required with the template output format")
	}
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(options.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &TemplateFormatter{options: options, tmpl: tmpl}, nil
}

func (f *TemplateFormatter) FormatRules(ruleSet []rules.Rule) error {
	return f.execute(map[string]any{"rules": ruleSet, "count": len(ruleSet)})
}

func (f *TemplateFormatter) FormatStatus(status server.StatusResponse) error {
	return f.execute(status)
}

func (f *TemplateFormatter) FormatPass(result engine.PassResult) error {
	return f.execute(result)
}

func (f *TemplateFormatter) execute(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	return f.tmpl.Execute(f.options.Output, generic)
}
