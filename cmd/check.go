package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"cartrules/internal/app"
	"cartrules/internal/engine"
	"cartrules/internal/formatting"
)

var (
	checkOutputFormat string
	checkTemplate     string
	checkQuiet        bool
	checkSessionID    string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one reconciliation pass and print the outcome",
	Long: `Runs a single forced reconciliation pass against the configured cart and
prints what every rule decided. The pass changes the cart exactly as the
running agent would.

The command exits non-zero when the rules or the cart could not be read.

Examples:
  cartrules check
  cartrules check -o json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOutputFormat, "output", "o", "table", "Output format (table, json, yaml, template)")
	checkCmd.Flags().StringVar(&checkTemplate, "template", "", "Go template for -o template (sprig functions available)")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Suppress non-essential output")
	checkCmd.Flags().StringVar(&checkSessionID, "session-id", "", "Host session token")
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatter, err := formatting.NewFormatter(formatting.Options{
		Format:   formatting.OutputFormat(checkOutputFormat),
		Template: checkTemplate,
		Quiet:    checkQuiet,
		Output:   cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	cfg := app.NewConfig(debug, configPath)
	cfg.SessionID = checkSessionID
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var s *spinner.Spinner
	if !checkQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Reconciling cart..."
		s.Start()
	}

	res, err := application.Check(ctx)

	if s != nil {
		if res.Outcome == engine.OutcomeRulesUnavailable || res.Outcome == engine.OutcomeCartUnavailable {
			s.FinalMSG = text.FgRed.Sprint("Reconciliation failed") + "\n"
		}
		s.Stop()
	}
	if err != nil {
		return err
	}

	if err := formatter.FormatPass(res); err != nil {
		return err
	}

	switch res.Outcome {
	case engine.OutcomeRulesUnavailable, engine.OutcomeCartUnavailable:
		return fmt.Errorf("pass %s: %s", res.Outcome, res.Error)
	}
	return nil
}
