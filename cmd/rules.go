package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cartrules/internal/app"
	"cartrules/internal/formatting"
)

var (
	rulesOutputFormat string
	rulesTemplate     string
	rulesQuiet        bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the shop's cart rules",
	Long: `Loads the rules from the configured source (the rules backend or the rule
directory) and lists them in evaluation order. Rules that cannot be evaluated
are shown as invalid together with the reason.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesOutputFormat, "output", "o", "table", "Output format (table, json, yaml, template)")
	rulesCmd.Flags().StringVar(&rulesTemplate, "template", "", "Go template for -o template (sprig functions available)")
	rulesCmd.Flags().BoolVarP(&rulesQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runRules(cmd *cobra.Command, args []string) error {
	formatter, err := formatting.NewFormatter(formatting.Options{
		Format:   formatting.OutputFormat(rulesOutputFormat),
		Template: rulesTemplate,
		Quiet:    rulesQuiet,
		Output:   cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	cfg := app.NewConfig(debug, configPath)
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ruleSet, err := application.Rules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	return formatter.FormatRules(ruleSet)
}
