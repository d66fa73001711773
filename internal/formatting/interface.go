// Package formatting renders agent data for the command line as tables, JSON
// or YAML.
package formatting

import (
	"fmt"
	"io"
	"os"

	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/internal/server"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output

	// FormatTemplate renders Options.Template with sprig functions.
	FormatTemplate OutputFormat = "template"
)

// Formats lists the accepted --output values.
var Formats = []string{string(FormatTable), string(FormatJSON), string(FormatYAML), string(FormatTemplate)}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool      // Suppress decorative elements
	Output io.Writer // Defaults to stdout

	// Template is the text/template source for FormatTemplate.
	Template string
}

// Formatter renders each kind of agent data.
type Formatter interface {
	FormatRules(ruleSet []rules.Rule) error
	FormatStatus(status server.StatusResponse) error
	FormatPass(result engine.PassResult) error
}

// NewFormatter creates the formatter for options.Format.
func NewFormatter(options Options) (Formatter, error) {
	if options.Output == nil {
		options.Output = os.Stdout
	}

	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options), nil
	case FormatYAML:
		return NewYAMLFormatter(options), nil
	case FormatTemplate:
		return NewTemplateFormatter(options)
	case FormatTable, "":
		return NewTableFormatter(options), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use one of %v)", options.Format, Formats)
	}
}
