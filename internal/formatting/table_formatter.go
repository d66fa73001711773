package formatting

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/internal/server"
	pkgstrings "cartrules/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
	now     func() time.Time
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{options: options, now: time.Now}
}

// FormatRules renders one row per rule in evaluation order.
func (f *TableFormatter) FormatRules(ruleSet []rules.Rule) error {
	if len(ruleSet) == 0 {
		f.emptyMessage("No rules configured for this shop")
		return nil
	}

	t := f.createTable()
	t.AppendHeader(header("ID", "NAME", "ACTIVE", "MIN", "MAX", "PRODUCTS", "FLAGS"))

	for _, r := range ruleSet {
		active := text.FgGreen.Sprint("yes")
		if !r.Active() {
			active = text.FgYellow.Sprint("no")
		}

		c, err := rules.Compile(r)
		if err != nil {
			t.AppendRow(table.Row{
				r.ID,
				pkgstrings.Cell(r.Name, 30),
				active,
				text.FgRed.Sprint("invalid"),
				"",
				pkgstrings.Cell(err.Error(), pkgstrings.DefaultCellWidth),
				"",
			})
			continue
		}

		max := "-"
		if c.HasUpperLimit {
			max = FormatMinor(c.MaxMinor)
		}
		t.AppendRow(table.Row{
			c.ID,
			pkgstrings.Cell(c.Name, 30),
			active,
			FormatMinor(c.MinMinor),
			max,
			pkgstrings.List(c.Products, 5),
			ruleFlags(r),
		})
	}

	t.Render()
	f.total(len(ruleSet), "rules")
	return nil
}

func ruleFlags(r rules.Rule) string {
	var flags []string
	if r.WorksInReverse {
		flags = append(flags, "reverse")
	}
	if r.ExecuteOncePerSession {
		flags = append(flags, "once")
	}
	if r.AllowMultipleTriggers {
		flags = append(flags, "multi")
	}
	if r.PreventQuantityChanges {
		flags = append(flags, "locked-qty")
	}
	return pkgstrings.List(flags, 0)
}

// FormatStatus renders the agent status as key/value pairs.
func (f *TableFormatter) FormatStatus(s server.StatusResponse) error {
	t := f.createTable()
	t.AppendHeader(header("KEY", "VALUE"))

	rulesLoaded := fmt.Sprintf("%d", s.RuleCount)
	if !s.RulesLoaded {
		rulesLoaded = text.FgYellow.Sprint("not loaded")
	}

	t.AppendRows([]table.Row{
		{key("Shop"), s.Shop},
		{key("Session"), s.Engine.SessionID},
		{key("Rules"), rulesLoaded},
		{key("Scheduler"), string(s.Scheduler)},
		{key("Reconciling"), s.Engine.Reconciling},
		{key("Suppressing"), s.Engine.Suppressing},
		{key("Fired rules"), pkgstrings.List(s.Engine.FiredRules, 0)},
		{key("Tracked products"), pkgstrings.List(s.Engine.TrackedProducts, 0)},
		{key("Connected hosts"), s.Hosts},
		{key("Passes"), s.Metrics.TotalPasses},
		{key("Last pass"), FormatAge(s.Metrics.LastPassAt, f.now())},
		{key("Last modified"), FormatAge(s.Metrics.LastModifiedAt, f.now())},
	})
	if s.Engine.LastTotalMinor != nil {
		t.AppendRow(table.Row{key("Last cart total"), FormatMinor(*s.Engine.LastTotalMinor)})
	}
	if s.LastPass != nil {
		t.AppendRow(table.Row{key("Last outcome"), outcomeColor(s.LastPass.Outcome)})
	}

	t.Render()
	return nil
}

// FormatPass renders a pass summary followed by one row per evaluated rule.
func (f *TableFormatter) FormatPass(res engine.PassResult) error {
	out := f.options.Output

	fmt.Fprintf(out, "%s %s", text.FgHiBlue.Sprint("Outcome:"), outcomeColor(res.Outcome))
	if res.Modified {
		fmt.Fprintf(out, " %s", text.FgHiWhite.Sprint("(cart modified)"))
	}
	fmt.Fprintf(out, " in %s\n", res.Duration.Round(time.Millisecond))

	if res.Error != "" {
		fmt.Fprintf(out, "%s %s\n", text.FgRed.Sprint("Error:"), res.Error)
	}
	if res.Cart != nil {
		fmt.Fprintf(out, "%s %s (%d items)\n", text.FgHiBlue.Sprint("Cart:"), FormatMinor(res.Cart.TotalMinor), res.Cart.ItemCount)
	}
	if len(res.Pruned) > 0 {
		fmt.Fprintf(out, "%s %s\n", text.FgHiBlue.Sprint("No longer tracked:"), pkgstrings.List(res.Pruned, 0))
	}

	if len(res.Rules) == 0 {
		return nil
	}

	t := f.createTable()
	t.AppendHeader(header("RULE", "DECISION", "ADDED", "REMOVED", "FAILED", "ERROR"))
	for _, o := range res.Rules {
		t.AppendRow(table.Row{
			o.RuleID,
			o.Action,
			pkgstrings.List(o.Result.Added, 0),
			pkgstrings.List(o.Result.Removed, 0),
			pkgstrings.List(o.Result.Failed, 0),
			pkgstrings.Cell(o.Error, pkgstrings.DefaultCellWidth),
		})
	}
	t.Render()
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Output)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) emptyMessage(message string) {
	fmt.Fprintf(f.options.Output, "%s\n", text.FgYellow.Sprint(message))
}

func (f *TableFormatter) total(n int, noun string) {
	if f.options.Quiet {
		return
	}
	fmt.Fprintf(f.options.Output, "\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(n),
		text.FgHiBlue.Sprint(noun))
}

func header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = text.FgHiCyan.Sprint(n)
	}
	return row
}

func key(s string) string {
	return text.FgHiCyan.Sprint(s)
}

func outcomeColor(o engine.Outcome) string {
	switch o {
	case engine.OutcomeCompleted, engine.OutcomeUnchanged, engine.OutcomeNoRules:
		return text.FgGreen.Sprint(string(o))
	case engine.OutcomeSuppressed, engine.OutcomeBusy:
		return text.FgYellow.Sprint(string(o))
	default:
		return text.FgRed.Sprint(string(o))
	}
}
